package usecases

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/interfaces"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type: upload a .zip or .txt WhatsApp export")
	ErrEmptyExport     = errors.New("no chat messages found in export")
	ErrExportTooLarge  = errors.New("export expands beyond the allowed size")
)

const (
	maxScanLine = 1 << 20

	// DefaultMaxExtractedBytes caps the decompressed size of chat and contact entries in one archive
	DefaultMaxExtractedBytes int64 = 128 << 20
)

var (
	// [15/04/2024, 10:30:12] Ramesh: body   (iOS)
	iosLine = regexp.MustCompile(`^\[(\d{1,2}[/.]\d{1,2}[/.]\d{2,4}),\s*(\d{1,2}:\d{2})(?::\d{2})?(\s?[APap]\.?[Mm]\.?)?\]\s*([^:]+?):\s?(.*)$`)
	// 15/04/2024, 10:30 - Ramesh: body      (Android)
	androidLine = regexp.MustCompile(`^(\d{1,2}[/.]\d{1,2}[/.]\d{2,4}),\s*(\d{1,2}:\d{2})(?::\d{2})?(\s?[APap]\.?[Mm]\.?)?\s+-\s+([^:]+?):\s?(.*)$`)
	// any line opening a new entry, including system notices without a sender
	entryStart = regexp.MustCompile(`^\[?\d{1,2}[/.]\d{1,2}[/.]\d{2,4},\s*\d{1,2}:\d{2}`)

	parsedLine = regexp.MustCompile(`^\[([^\]]+)\]\s*([^:]+?):\s?(.*)$`)
	nonDigit   = regexp.MustCompile(`\D`)
)

// ChatImporter turns WhatsApp exports into stored chat lines
type ChatImporter struct {
	store  interfaces.ChatStore
	logger *zap.Logger
	now    func() time.Time

	MaxExtractedBytes int64
}

func NewChatImporter(store interfaces.ChatStore, logger *zap.Logger) *ChatImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatImporter{store: store, logger: logger, now: time.Now, MaxExtractedBytes: DefaultMaxExtractedBytes}
}

// ImportFile parses an uploaded export and replaces the stored collection
func (ci *ChatImporter) ImportFile(ctx context.Context, fileName string, r io.Reader) (*entities.ChatImport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var (
		lines   []string
		skipped int
	)
	switch strings.ToLower(path.Ext(fileName)) {
	case ".zip":
		lines, skipped, err = ParseArchive(bytes.NewReader(data), int64(len(data)), ci.MaxExtractedBytes)
	case ".txt":
		lines, err = ParseExport(bytes.NewReader(data), nil)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyExport
	}

	return ci.replace(ctx, "upload", fileName, lines, skipped)
}

// LoadSample replaces the collection with a canned demo chat
func (ci *ChatImporter) LoadSample(ctx context.Context, lines []string) (*entities.ChatImport, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyExport
	}
	return ci.replace(ctx, "sample", "sample_chat", lines, 0)
}

// Messages returns stored lines split into parts, at most limit when limit > 0
func (ci *ChatImporter) Messages(ctx context.Context, limit int) ([]entities.ChatMessage, error) {
	lines, err := ci.store.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	out := make([]entities.ChatMessage, len(lines))
	for i, l := range lines {
		out[i] = SplitChatLine(l)
	}
	return out, nil
}

func (ci *ChatImporter) Clear(ctx context.Context) error {
	return ci.store.ClearMessages(ctx)
}

func (ci *ChatImporter) replace(ctx context.Context, source, fileName string, lines []string, skipped int) (*entities.ChatImport, error) {
	batch := entities.ChatImport{
		ID:           uuid.NewString(),
		Source:       source,
		FileName:     fileName,
		MessageCount: len(lines),
		SkippedFiles: skipped,
		CreatedAt:    ci.now().UTC(),
	}
	if err := ci.store.ReplaceMessages(ctx, batch, lines); err != nil {
		return nil, fmt.Errorf("store messages: %w", err)
	}
	ci.logger.Info("chat export imported",
		zap.String("import_id", batch.ID),
		zap.String("source", source),
		zap.String("file", fileName),
		zap.Int("messages", len(lines)),
		zap.Int("skipped_files", skipped))
	return &batch, nil
}

// ParseArchive reads every .txt chat in a WhatsApp export zip. Contact cards
// (.vcf) rename phone-number senders; other entries are counted as skipped.
// Entries read in total may decompress to at most limit bytes; limit <= 0
// means DefaultMaxExtractedBytes.
func ParseArchive(r io.ReaderAt, size, limit int64) ([]string, int, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, 0, fmt.Errorf("open zip: %w", err)
	}
	if limit <= 0 {
		limit = DefaultMaxExtractedBytes
	}
	budget := &extractBudget{left: limit}

	contacts := map[string]string{}
	var chats []*zip.File
	skipped := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".txt":
			chats = append(chats, f)
		case ".vcf":
			if err := readZipEntry(f, budget, func(r io.Reader) error {
				for k, v := range ParseContacts(r) {
					contacts[k] = v
				}
				return nil
			}); err != nil {
				return nil, 0, err
			}
		default:
			skipped++
		}
	}

	var lines []string
	for _, f := range chats {
		err := readZipEntry(f, budget, func(r io.Reader) error {
			parsed, err := ParseExport(r, contacts)
			lines = append(lines, parsed...)
			return err
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return lines, skipped, nil
}

func readZipEntry(f *zip.File, budget *extractBudget, fn func(io.Reader) error) error {
	if f.UncompressedSize64 > uint64(budget.left) {
		return fmt.Errorf("%s: %w", f.Name, ErrExportTooLarge)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	err = fn(&budgetReader{r: rc, budget: budget})
	if budget.exceeded() {
		return fmt.Errorf("%s: %w", f.Name, ErrExportTooLarge)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", f.Name, err)
	}
	return nil
}

// extractBudget is shared by every entry of one archive and counts the bytes
// actually read, not the sizes claimed in entry headers.
type extractBudget struct {
	left int64
}

func (b *extractBudget) exceeded() bool { return b.left < 0 }

type budgetReader struct {
	r      io.Reader
	budget *extractBudget
}

func (br *budgetReader) Read(p []byte) (int, error) {
	if br.budget.exceeded() {
		return 0, ErrExportTooLarge
	}
	// at most one byte past the budget
	if room := br.budget.left + 1; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := br.r.Read(p)
	br.budget.left -= int64(n)
	if br.budget.exceeded() {
		return n, ErrExportTooLarge
	}
	return n, err
}

// ParseExport normalises a WhatsApp text export to "[date, time] Sender: body"
// lines. Continuation lines are folded into the previous message.
func ParseExport(r io.Reader, contacts map[string]string) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxScanLine)

	var (
		out     []string
		current *chatEntry
	)
	flush := func() {
		if current != nil && !current.isMedia() {
			out = append(out, current.String())
		}
		current = nil
	}

	for scanner.Scan() {
		line := cleanLine(scanner.Text())
		if line == "" {
			continue
		}

		if m := iosLine.FindStringSubmatch(line); m != nil {
			flush()
			current = newChatEntry(m, contacts)
			continue
		}
		if m := androidLine.FindStringSubmatch(line); m != nil {
			flush()
			current = newChatEntry(m, contacts)
			continue
		}
		if entryStart.MatchString(line) {
			// system notice, e.g. "Messages are end-to-end encrypted"
			flush()
			continue
		}
		if current != nil {
			current.body = strings.TrimSpace(current.body + " " + line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan export: %w", err)
	}
	flush()
	return out, nil
}

type chatEntry struct {
	date, clock, sender, body string
}

func newChatEntry(m []string, contacts map[string]string) *chatEntry {
	clock := m[2]
	if suffix := strings.TrimSpace(m[3]); suffix != "" {
		clock += " " + strings.ToUpper(strings.ReplaceAll(suffix, ".", ""))
	}
	return &chatEntry{
		date:   m[1],
		clock:  clock,
		sender: resolveSender(strings.TrimSpace(m[4]), contacts),
		body:   strings.TrimSpace(m[5]),
	}
}

func (e *chatEntry) isMedia() bool {
	b := strings.ToLower(e.body)
	return b == "" || b == "<media omitted>" || strings.HasSuffix(b, " omitted") ||
		strings.HasPrefix(b, "<attached:")
}

func (e *chatEntry) String() string {
	return fmt.Sprintf("[%s, %s] %s: %s", e.date, e.clock, e.sender, e.body)
}

// ParseContacts maps the last ten digits of each TEL in a vCard stream to its FN
func ParseContacts(r io.Reader) map[string]string {
	contacts := map[string]string{}
	scanner := bufio.NewScanner(r)

	var name string
	var phones []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		upper := strings.ToUpper(line)
		switch {
		case upper == "BEGIN:VCARD":
			name, phones = "", nil
		case strings.HasPrefix(upper, "FN"):
			if i := strings.Index(line, ":"); i >= 0 {
				name = strings.TrimSpace(line[i+1:])
			}
		case strings.HasPrefix(upper, "TEL") || strings.Contains(upper, ".TEL"):
			if i := strings.LastIndex(line, ":"); i >= 0 {
				phones = append(phones, line[i+1:])
			}
		case upper == "END:VCARD":
			if name == "" {
				continue
			}
			for _, p := range phones {
				if key := phoneKey(p); key != "" {
					contacts[key] = name
				}
			}
		}
	}
	return contacts
}

func resolveSender(sender string, contacts map[string]string) string {
	if len(contacts) == 0 {
		return sender
	}
	if name, ok := contacts[phoneKey(sender)]; ok {
		return name
	}
	return sender
}

func phoneKey(s string) string {
	digits := nonDigit.ReplaceAllString(s, "")
	if len(digits) < 7 {
		return ""
	}
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func cleanLine(s string) string {
	s = strings.ReplaceAll(s, "\u200e", "")
	s = strings.ReplaceAll(s, "\u202f", " ")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.TrimSpace(s)
}

// SplitChatLine splits a stored line; lines not in bracket form keep only Raw
func SplitChatLine(line string) entities.ChatMessage {
	msg := entities.ChatMessage{Raw: line}
	if m := parsedLine.FindStringSubmatch(line); m != nil {
		msg.Date = m[1]
		msg.Sender = m[2]
		msg.Body = m[3]
	}
	return msg
}
