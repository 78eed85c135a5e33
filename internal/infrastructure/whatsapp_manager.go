package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"buyerwatch/internal/interfaces"

	"github.com/skip2/go-qrcode"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"
)

const (
	SourceWhatsApp = "whatsapp"
	liveLineLayout = "02/01/2006, 15:04"
	appendTimeout  = 5 * time.Second
)

var ErrNoPairingCode = errors.New("no pairing code available")

// WhatsAppStatus is reported on the admin status endpoint
type WhatsAppStatus struct {
	Enabled   bool     `json:"enabled"`
	Connected bool     `json:"connected"`
	LoggedIn  bool     `json:"logged_in"`
	Phone     string   `json:"phone,omitempty"`
	Pairing   bool     `json:"pairing"`
	Groups    []string `json:"groups"`
}

// GroupIngestor appends text messages from watched group chats to the store
type GroupIngestor struct {
	store  interfaces.ChatStore
	groups map[string]bool
	logger *zap.Logger
}

// NewGroupIngestor watches the given group JIDs; an empty list accepts every group
func NewGroupIngestor(store interfaces.ChatStore, groups []string, logger *zap.Logger) *GroupIngestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			set[g] = true
		}
	}
	return &GroupIngestor{store: store, groups: set, logger: logger}
}

// HandleEvent is registered as a whatsmeow event handler
func (g *GroupIngestor) HandleEvent(evt interface{}) {
	msg, ok := evt.(*events.Message)
	if !ok {
		return
	}
	line, ok := g.lineFor(msg)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()
	if err := g.store.AppendMessages(ctx, SourceWhatsApp, []string{line}); err != nil {
		g.logger.Warn("failed to store whatsapp message",
			zap.String("chat", msg.Info.Chat.String()), zap.Error(err))
		return
	}
	g.logger.Debug("whatsapp message stored", zap.String("chat", msg.Info.Chat.String()))
}

func (g *GroupIngestor) lineFor(msg *events.Message) (string, bool) {
	if !msg.Info.IsGroup || msg.Info.IsFromMe {
		return "", false
	}
	if len(g.groups) > 0 && !g.groups[msg.Info.Chat.String()] {
		return "", false
	}
	body := strings.TrimSpace(MessageText(msg.Message))
	if body == "" {
		return "", false
	}

	sender := msg.Info.PushName
	if sender == "" {
		sender = msg.Info.Sender.User
	}
	return FormatLiveLine(msg.Info.Timestamp, sender, body), true
}

// MessageText extracts plain or extended text; media without caption yields ""
func MessageText(m *waProto.Message) string {
	if m == nil {
		return ""
	}
	if m.GetConversation() != "" {
		return m.GetConversation()
	}
	if ext := m.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := m.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	return ""
}

// FormatLiveLine renders a live message in the same bracket form as imports
func FormatLiveLine(ts time.Time, sender, body string) string {
	body = strings.Join(strings.Fields(body), " ")
	return fmt.Sprintf("[%s] %s: %s", ts.Format(liveLineLayout), sender, body)
}

// WhatsAppManager owns the linked-device client and its ingestor
type WhatsAppManager struct {
	client   *WhatsAppClient
	ingestor *GroupIngestor
	groups   []string
	logger   *zap.Logger
}

func NewWhatsAppManager(client *WhatsAppClient, ingestor *GroupIngestor, groups []string, logger *zap.Logger) *WhatsAppManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppManager{client: client, ingestor: ingestor, groups: groups, logger: logger}
}

// Run connects and blocks until ctx is done, then disconnects
func (m *WhatsAppManager) Run(ctx context.Context) error {
	m.client.AddHandler(m.ingestor.HandleEvent)
	if err := m.client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect WhatsApp: %w", err)
	}
	m.logger.Info("whatsapp listener started", zap.Strings("groups", m.groups))

	<-ctx.Done()
	m.client.Disconnect()
	m.logger.Info("whatsapp listener stopped")
	return nil
}

func (m *WhatsAppManager) Status() WhatsAppStatus {
	if m == nil || m.client == nil {
		return WhatsAppStatus{Groups: []string{}}
	}
	groups := m.groups
	if groups == nil {
		groups = []string{}
	}
	return WhatsAppStatus{
		Enabled:   true,
		Connected: m.client.IsConnected(),
		LoggedIn:  m.client.IsLoggedIn(),
		Phone:     m.client.PhoneNumber(),
		Pairing:   m.client.QR() != "",
		Groups:    groups,
	}
}

// QRPNG renders the current pairing code
func (m *WhatsAppManager) QRPNG(size int) ([]byte, error) {
	if m == nil || m.client == nil {
		return nil, ErrNoPairingCode
	}
	return EncodeQR(m.client.QR(), size)
}

func EncodeQR(code string, size int) ([]byte, error) {
	if code == "" {
		return nil, ErrNoPairingCode
	}
	return qrcode.Encode(code, qrcode.Medium, size)
}
