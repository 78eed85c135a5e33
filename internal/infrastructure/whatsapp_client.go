package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient is a linked-device session stored in a local sqlite file
type WhatsAppClient struct {
	Client *whatsmeow.Client
	logger *zap.Logger

	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(ctx context.Context, dbPath string, logger *zap.Logger) (*WhatsAppClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create device directory: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", NewWALogger(logger, "Database"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return &WhatsAppClient{
		Client: whatsmeow.NewClient(deviceStore, NewWALogger(logger, "Client")),
		logger: logger,
	}, nil
}

// Connect starts the session. Without a stored identity a pairing QR is
// published through QR() until the device is linked.
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return err
		}
		w.logger.Info("whatsapp connected (existing session)", zap.String("phone", w.PhoneNumber()))
		return nil
	}

	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return err
	}

	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				w.setQR(evt.Code)
				w.logger.Info("whatsapp pairing code refreshed")
				continue
			}
			w.setQR("")
			w.logger.Info("whatsapp login event", zap.String("event", evt.Event))
		}
	}()
	return nil
}

func (w *WhatsAppClient) setQR(code string) {
	w.qrLock.Lock()
	w.qrCode = code
	w.qrLock.Unlock()
}

func (w *WhatsAppClient) QR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

func (w *WhatsAppClient) PhoneNumber() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.ID.User
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

func (w *WhatsAppClient) Disconnect() {
	w.setQR("")
	w.Client.Disconnect()
}

// zapWALogger routes whatsmeow logs into zap
type zapWALogger struct {
	s *zap.SugaredLogger
}

func NewWALogger(logger *zap.Logger, module string) waLog.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return zapWALogger{s: logger.Named("whatsmeow").Named(module).Sugar()}
}

func (l zapWALogger) Errorf(msg string, args ...interface{}) { l.s.Errorf(msg, args...) }
func (l zapWALogger) Warnf(msg string, args ...interface{})  { l.s.Warnf(msg, args...) }
func (l zapWALogger) Infof(msg string, args ...interface{})  { l.s.Infof(msg, args...) }
func (l zapWALogger) Debugf(msg string, args ...interface{}) { l.s.Debugf(msg, args...) }

func (l zapWALogger) Sub(module string) waLog.Logger {
	return zapWALogger{s: l.s.Named(module)}
}
