// Package api provides HTTP handlers and the main API server logic for rsvpd.
//
// It exposes RESTful endpoints for managing users, events, and participant
// imports, triggering invitation and voice campaigns, and receiving messaging
// provider webhooks that drive the RSVP conversation engine.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/evinta/rsvpd/internal/docstore"
	"github.com/evinta/rsvpd/internal/flow"
	"github.com/evinta/rsvpd/internal/genai"
	"github.com/evinta/rsvpd/internal/messaging"
	"github.com/evinta/rsvpd/internal/store"
	"github.com/evinta/rsvpd/internal/twiliowhatsapp"
	"github.com/evinta/rsvpd/internal/voice"
	"github.com/evinta/rsvpd/internal/whatsapp"
)

// Default configuration constants.
const (
	// DefaultAddr is the default API server listen address.
	DefaultAddr = ":8080"
	// DefaultReadTimeout bounds request header and body reads.
	DefaultReadTimeout = 30 * time.Second
	// DefaultWriteTimeout bounds response writes.
	DefaultWriteTimeout = 60 * time.Second
)

// Messaging provider selectors.
const (
	ProviderCloud  = "cloud"
	ProviderTwilio = "twilio"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr              string
	VerifyToken       string
	MessagingProvider string
	UploadsDir        string
	UploadsBaseURL    string
	SyncSchedule      string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithVerifyToken sets the webhook verification secret.
func WithVerifyToken(token string) Option {
	return func(o *Opts) {
		o.VerifyToken = token
	}
}

// WithMessagingProvider selects the outbound gateway ("cloud" or "twilio").
func WithMessagingProvider(p string) Option {
	return func(o *Opts) {
		o.MessagingProvider = p
	}
}

// WithUploadsDir sets the directory collected documents are stored under.
func WithUploadsDir(dir string) Option {
	return func(o *Opts) {
		o.UploadsDir = dir
	}
}

// WithUploadsBaseURL sets the public URL prefix for stored documents.
func WithUploadsBaseURL(url string) Option {
	return func(o *Opts) {
		o.UploadsBaseURL = url
	}
}

// WithSyncSchedule sets the cron schedule for voice batch status polling.
func WithSyncSchedule(schedule string) Option {
	return func(o *Opts) {
		o.SyncSchedule = schedule
	}
}

// Server wires the HTTP surface to the store, gateway, engine, and campaigns.
type Server struct {
	store       store.Store
	gateway     messaging.Gateway
	engine      *flow.Engine
	campaigns   *voice.CampaignManager
	docs        docstore.Storage
	uploadsDir  string
	verifyToken string
	addr        string
}

// NewServer constructs a Server from already-wired collaborators. When the
// document storage is the filesystem backend its directory is served back
// under /uploads/.
func NewServer(st store.Store, gateway messaging.Gateway, engine *flow.Engine, campaigns *voice.CampaignManager, docs docstore.Storage, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = os.Getenv("WEBHOOK_VERIFY_TOKEN")
	}
	uploadsDir := ""
	if fs, ok := docs.(*docstore.FilesystemStore); ok {
		uploadsDir = fs.Dir()
	}
	return &Server{
		store:       st,
		gateway:     gateway,
		engine:      engine,
		campaigns:   campaigns,
		docs:        docs,
		uploadsDir:  uploadsDir,
		verifyToken: cfg.VerifyToken,
		addr:        cfg.Addr,
	}
}

// Run builds every module from the provided options and serves the API until
// the listener fails. Optional collaborators (oracle, voice provider) degrade
// gracefully when unconfigured.
func Run(waOpts []whatsapp.Option, storeOpts []store.Option, genaiOpts []genai.Option, voiceOpts []voice.Option, apiOpts []Option) error {
	cfg := Opts{Addr: DefaultAddr, MessagingProvider: ProviderCloud}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	gateway, media, err := buildGateway(cfg.MessagingProvider, waOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging gateway: %w", err)
	}

	docs, err := buildDocStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize document store: %w", err)
	}

	engineOpts := []flow.Option{flow.WithDocumentStore(docs)}
	if media != nil {
		engineOpts = append(engineOpts, flow.WithMedia(media))
	}
	if oracle, err := genai.NewClient(genaiOpts...); err != nil {
		slog.Warn("Oracle fallback disabled", "error", err)
	} else {
		engineOpts = append(engineOpts, flow.WithOracle(oracle))
	}
	engine := flow.NewEngine(st, gateway, engineOpts...)

	var campaigns *voice.CampaignManager
	if dialer, err := voice.NewClient(voiceOpts...); err != nil {
		slog.Warn("Voice campaigns disabled", "error", err)
	} else {
		campaigns = voice.NewCampaignManager(st, dialer)
		stop, err := campaigns.StartStatusSync(cfg.SyncSchedule)
		if err != nil {
			return fmt.Errorf("failed to start voice status sync: %w", err)
		}
		defer stop()
	}

	srv := NewServer(st, gateway, engine, campaigns, docs, apiOpts...)
	return srv.Serve()
}

// Serve registers routes and blocks on the HTTP listener.
func (s *Server) Serve() error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	httpSrv := &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
	slog.Info("rsvpd API listening", "addr", s.addr)
	return httpSrv.ListenAndServe()
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/users", s.usersHandler)
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/events/", s.eventSubresourceHandler)
	mux.HandleFunc("/conversations/", s.conversationHandler)
	mux.HandleFunc("/participants/", s.participantSubresourceHandler)
	mux.HandleFunc("/receipts", s.receiptsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	if s.uploadsDir != "" {
		prefix := "/uploads/"
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(s.uploadsDir))))
	}
}

// buildDocStore selects the document storage backend: a bucket-style service
// when DOCSTORE_ENDPOINT is configured, the local filesystem otherwise.
func buildDocStore(cfg Opts) (docstore.Storage, error) {
	if os.Getenv("DOCSTORE_ENDPOINT") != "" {
		return docstore.NewBucketStore()
	}
	var docOpts []docstore.Option
	if cfg.UploadsDir != "" {
		docOpts = append(docOpts, docstore.WithBaseDir(cfg.UploadsDir))
	}
	if cfg.UploadsBaseURL != "" {
		docOpts = append(docOpts, docstore.WithBaseURL(cfg.UploadsBaseURL))
	}
	return docstore.NewFilesystemStore(docOpts...)
}

func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Warn("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		return store.NewPostgresStore(storeOpts...)
	}
	return store.NewSQLiteStore(storeOpts...)
}

// buildGateway returns the outbound gateway and, for the Cloud API, the media
// resolver used by the document sub-flow (Twilio inbound media is not wired).
func buildGateway(provider string, waOpts []whatsapp.Option) (messaging.Gateway, flow.MediaResolver, error) {
	if provider == ProviderTwilio {
		tw, err := twiliowhatsapp.NewClient()
		if err != nil {
			return nil, nil, err
		}
		return messaging.NewTwilioService(tw), nil, nil
	}
	wa, err := whatsapp.NewClient(waOpts...)
	if err != nil {
		return nil, nil, err
	}
	return messaging.NewCloudService(wa), wa, nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
