package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Service is the back-office surface the façade drives. *ledger.Service implements it.
type Service interface {
	Ledger(ctx context.Context, query ledger.LedgerQuery) (ledger.LedgerView, error)
	CreateGeneralRecord(ctx context.Context, input ledger.GeneralRecordInput) (ledger.GeneralRecord, error)
	RederivePayout(ctx context.Context, recordID string) (ledger.Payment, error)
	RecordPayment(ctx context.Context, input ledger.PaymentInput) (ledger.Payment, error)
	MarkPaymentPaid(ctx context.Context, recipientKind ledger.SubjectKind, paymentID string) (ledger.Payment, error)

	CreateScript(ctx context.Context, input ledger.ScriptInput) (ledger.Script, error)
	GetScript(ctx context.Context, scriptID string) (ledger.Script, error)
	AssignScript(ctx context.Context, scriptID string, actorID string) (ledger.Script, error)
	SaveVoiceLink(ctx context.Context, scriptID string, actorID string, voiceLink string) (ledger.Script, error)
	ClearVoiceLink(ctx context.Context, scriptID string, actorID string) (ledger.Script, error)
	ProducerApprove(ctx context.Context, scriptID string, approverID string) (ledger.Script, error)
	AdminApprove(ctx context.Context, scriptID string, approverID string, priceText string) (ledger.Script, ledger.EditPack, error)
	RejectScript(ctx context.Context, scriptID string, actorID string, reason string) (ledger.Script, error)
	ResubmitScript(ctx context.Context, scriptID string, actorID string) (ledger.Script, error)
	MarkPaid(ctx context.Context, scriptID string, actorID string) (ledger.Script, error)
	ArchiveScript(ctx context.Context, scriptID string, actorID string) (ledger.Script, error)

	GetOrCreateEditPack(ctx context.Context, scriptID string) (ledger.EditPack, error)
	UpdateEditPack(ctx context.Context, scriptID string, editorNotes string, assetsLinks []ledger.AssetLink) (ledger.EditPack, error)
	ResolveEditPack(ctx context.Context, token string) (ledger.ResolvedEditPack, error)
	EditPackExpired(pack ledger.EditPack) bool
}

// RequestObserver records request timings.
type RequestObserver interface {
	ObserveRequest(route string, status int, duration time.Duration)
}

// Dependencies wires the router.
type Dependencies struct {
	Service  Service
	Logger   *zap.Logger
	Observer RequestObserver
	Gatherer prometheus.Gatherer
}

// Run serves handler on cfg.ListenAddr until ctx is cancelled.
func Run(ctx context.Context, cfg Config, handler http.Handler, logger *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backoffice listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("server shutdown error", zap.Error(shutdownErr))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

// NewRouter builds the gin engine for the back office.
func NewRouter(cfg Config, deps Dependencies) (*gin.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Service == nil {
		return nil, errors.New("httpapi: service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{service: deps.Service, logger: logger}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observeRequests(deps.Observer))
	router.Use(requestTimeout(cfg.RequestTimeout))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept", headerActorID, headerActorRole},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/edit-pack/:token", handler.handleResolveEditPack)

	api := router.Group("/api")
	api.Use(requireActor())

	api.GET("/ledger", allowRoles(RoleAdmin, RoleTeam), handler.handleLedger)
	api.POST("/records", allowRoles(RoleAdmin), handler.handleCreateRecord)
	api.POST("/records/:id/rederive", allowRoles(RoleAdmin), handler.handleRederivePayout)
	api.POST("/payments", allowRoles(RoleAdmin), handler.handleRecordPayment)
	api.POST("/payments/:kind/:id/paid", allowRoles(RoleAdmin), handler.handleMarkPaymentPaid)

	scripts := api.Group("/scripts")
	scripts.POST("", allowRoles(RoleAdmin, RoleContentCreator), handler.handleCreateScript)
	scripts.GET("/:id", handler.handleGetScript)
	scripts.POST("/:id/assign", allowRoles(RoleVoiceActor, RoleAdmin), handler.handleAssignScript)
	scripts.PUT("/:id/voice-link", allowRoles(RoleVoiceActor, RoleAdmin), handler.handleSaveVoiceLink)
	scripts.DELETE("/:id/voice-link", allowRoles(RoleVoiceActor, RoleAdmin), handler.handleClearVoiceLink)
	scripts.POST("/:id/producer-approve", allowRoles(RoleContentCreator, RoleAdmin), handler.handleProducerApprove)
	scripts.POST("/:id/admin-approve", allowRoles(RoleAdmin), handler.handleAdminApprove)
	scripts.POST("/:id/reject", allowRoles(RoleContentCreator, RoleAdmin), handler.handleRejectScript)
	scripts.POST("/:id/resubmit", allowRoles(RoleVoiceActor, RoleContentCreator, RoleAdmin), handler.handleResubmitScript)
	scripts.POST("/:id/pay", allowRoles(RoleAdmin), handler.handleMarkPaid)
	scripts.POST("/:id/archive", allowRoles(RoleContentCreator, RoleAdmin), handler.handleArchiveScript)
	scripts.GET("/:id/edit-pack", allowRoles(RoleContentCreator, RoleAdmin), handler.handleGetEditPack)
	scripts.PUT("/:id/edit-pack", allowRoles(RoleContentCreator, RoleAdmin), handler.handleUpdateEditPack)

	return router, nil
}

type httpHandler struct {
	service Service
	logger  *zap.Logger
}

func observeRequests(observer RequestObserver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if observer == nil {
			ctx.Next()
			return
		}
		started := time.Now()
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observer.ObserveRequest(route, ctx.Writer.Status(), time.Since(started))
	}
}

func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(requestCtx)
		ctx.Next()
	}
}
