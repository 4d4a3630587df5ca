package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scanbrief/internal/util"
	"scanbrief/pkg/ai"
	"scanbrief/pkg/auth"
	"scanbrief/pkg/domain"
	"scanbrief/pkg/mail"
	"scanbrief/pkg/ocr"
	"scanbrief/pkg/storage"
	"scanbrief/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	SessionStrategy string
	SessionTTL      time.Duration
	JWTSecret       string

	OCREndpoint string
	OCRAPIKey   string

	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	Workers      int
	CallTimeout  time.Duration
	HistoryLimit int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Injection points for tests.
	Store     store.Store
	Sessions  store.SessionStore
	Extractor ocr.Extractor
	Completer ai.Completer
	Mailer    mail.Mailer
	Objects   storage.ObjectStore
}

// App is the core application service wiring storage, the OCR and LLM
// collaborators, and session management.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	extractor ocr.Extractor
	completer ai.Completer
	mailer    mail.Mailer
	objects   storage.ObjectStore

	workers      int
	callTimeout  time.Duration
	historyLimit int
}

// New constructs the application. An empty DatabaseURL selects the in-memory
// store, which is only suitable for local development.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 3 * time.Minute
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			dataStore = store.NewMemoryStore()
		} else {
			var err error
			dataStore, err = store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		var err error
		sessionStore, err = newSessionStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	extractor := cfg.Extractor
	if extractor == nil {
		extractor = ocr.NewSpaceClient(cfg.OCREndpoint, cfg.OCRAPIKey)
	}

	completer := cfg.Completer
	if completer == nil {
		completer = ai.NewOpenAICompatClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	}

	mailer := cfg.Mailer
	if mailer == nil && cfg.SMTPHost != "" {
		var err error
		mailer, err = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		if err != nil {
			return nil, fmt.Errorf("init smtp mailer: %w", err)
		}
	}

	objects := cfg.Objects
	if objects == nil && cfg.MinioEndpoint != "" {
		var err error
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
	}

	return &App{
		store:        dataStore,
		sessions:     sessionStore,
		extractor:    extractor,
		completer:    completer,
		mailer:       mailer,
		objects:      objects,
		workers:      cfg.Workers,
		callTimeout:  cfg.CallTimeout,
		historyLimit: cfg.HistoryLimit,
	}, nil
}

func newSessionStore(cfg Config) (store.SessionStore, error) {
	switch cfg.SessionStrategy {
	case "", "memory":
		return store.NewMemorySessionStore(cfg.SessionTTL), nil
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return nil, fmt.Errorf("redisAddr is required for redis session strategy")
		}
		return store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL), nil
	case "jwt":
		return store.NewJWTSessionStore(cfg.JWTSecret, cfg.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown session strategy %q", cfg.SessionStrategy)
	}
}

// SignUp registers a new user and issues a session token.
// The first account ever created becomes the admin.
func (a *App) SignUp(username, email, password string) (domain.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))
	if username == "" || email == "" || password == "" {
		return domain.User{}, "", ErrSignupFieldsRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, "", err
	}
	exists, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	count, err := a.store.UserCount()
	if err != nil {
		return domain.User{}, "", fmt.Errorf("count users: %w", err)
	}
	role := domain.RoleUser
	if count == 0 {
		role = domain.RoleAdmin
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUserByID(uid)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

// History lists the caller's processed items, newest first.
func (a *App) History(ctx context.Context, user domain.User, filter store.Filter) ([]domain.ProcessedItem, error) {
	return a.store.ListItems(ctx, user.ID, filter, a.historyLimit)
}

// DeleteHistoryItem removes one of the caller's items. Deleting an item that
// does not exist, or that belongs to another user, returns store.ErrNotFound.
// The archived upload, if any, is removed best-effort after the row.
func (a *App) DeleteHistoryItem(ctx context.Context, user domain.User, itemID string) error {
	item, err := a.store.GetItem(ctx, user.ID, itemID)
	if err != nil {
		return err
	}
	if err := a.store.DeleteItem(ctx, user.ID, itemID); err != nil {
		return err
	}
	if a.objects != nil && item.StorageKey != "" {
		if err := a.objects.Delete(ctx, item.StorageKey); err != nil {
			util.LoggerFromContext(ctx).Warn("archived upload delete failed", "key", item.StorageKey, "error", err)
		}
	}
	return nil
}

// downloadURLTTL bounds how long a presigned download link stays valid.
const downloadURLTTL = 15 * time.Minute

// DownloadURL returns a short-lived presigned URL for the item's archived
// original upload.
func (a *App) DownloadURL(ctx context.Context, user domain.User, itemID string) (string, error) {
	item, err := a.store.GetItem(ctx, user.ID, itemID)
	if err != nil {
		return "", err
	}
	if a.objects == nil || item.StorageKey == "" {
		return "", ErrNoArchive
	}
	return a.objects.PresignGet(ctx, item.StorageKey, downloadURLTTL)
}

// Analytics recomputes the caller's usage summary from their history.
func (a *App) Analytics(ctx context.Context, user domain.User) (domain.AnalyticsSummary, error) {
	return a.store.Aggregate(ctx, user.ID)
}

// AdminUsers lists all registered users.
func (a *App) AdminUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

// AdminStats aggregates usage across all users.
func (a *App) AdminStats(ctx context.Context) (domain.AdminOverview, error) {
	return a.store.AdminOverview(ctx)
}
