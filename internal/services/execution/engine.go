package execution

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/alertbridge/internal/domain"
	"github.com/vadiminshakov/alertbridge/internal/services/dedup"
	"go.uber.org/zap"
)

// Status outcome class reported to the alert sender.
type Status string

const (
	StatusSuccess Status = "success"
	StatusIgnored Status = "ignored"
	StatusError   Status = "error"
)

const orderTypeMarket = "MARKET"

// Result response of one webhook delivery.
type Result struct {
	Status  Status `json:"status"`
	Code    int    `json:"-"`
	Message string `json:"message"`

	Symbol    string                 `json:"symbol,omitempty"`
	Position  domain.MarketPosition  `json:"position,omitempty"`
	Quantity  string                 `json:"quantity,omitempty"`
	Price     string                 `json:"price,omitempty"`
	Leverage  int                    `json:"leverage,omitempty"`
	OrderType string                 `json:"order_type,omitempty"`
	Entries   int                    `json:"entries,omitempty"`
	Orders    []domain.ExecutedOrder `json:"orders,omitempty"`
}

type normalizer interface {
	Normalize(payload []byte, now time.Time) (domain.Signal, error)
}

type deduplicator interface {
	IsDuplicate(key string, now time.Time) bool
}

type executor interface {
	Execute(ctx context.Context, sig domain.Signal, snap domain.MarketSnapshot) (Outcome, error)
}

type recorder interface {
	RecordSignal(source, status string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// EngineSettings request level parameters.
type EngineSettings struct {
	Pair           domain.Pair
	Leverage       int
	DedupStrict    bool
	RequestTimeout time.Duration
}

// Engine runs the webhook pipeline: normalize, deduplicate, read market state, execute.
type Engine struct {
	normalizer normalizer
	dedup      deduplicator
	snapshot   snapshotter
	executor   executor
	metrics    recorder
	settings   EngineSettings
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates an Engine. metrics may be nil.
func NewEngine(
	logger *zap.Logger,
	n normalizer,
	d deduplicator,
	snapshot snapshotter,
	exec executor,
	metrics recorder,
	settings EngineSettings,
) *Engine {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Engine{
		normalizer: n,
		dedup:      d,
		snapshot:   snapshot,
		executor:   exec,
		metrics:    metrics,
		settings:   settings,
		logger:     logger.With(zap.String("pair", settings.Pair.String())),
		now:        time.Now,
	}
}

// Handle processes one raw webhook payload. It never panics and always
// returns a Result with an HTTP status code.
func (e *Engine) Handle(ctx context.Context, payload []byte) (res Result) {
	start := time.Now()
	source := "unknown"

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while handling signal", zap.Any("panic", r), zap.Stack("stack"))
			res = Result{Status: StatusError, Code: http.StatusInternalServerError, Message: "internal error"}
		}
		e.metrics.RecordSignal(source, string(res.Status))
		e.metrics.RecordLatency("webhook", time.Since(start).Seconds())
	}()

	if e.settings.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.RequestTimeout)
		defer cancel()
	}

	now := e.now()
	sig, err := e.normalizer.Normalize(payload, now)
	if err != nil {
		e.logger.Warn("rejected payload", zap.ByteString("payload", truncate(payload, 512)), zap.Error(err))
		return e.failure(err, Outcome{})
	}
	source = string(sig.Source)

	log := e.logger.With(
		zap.String("source", source),
		zap.String("action", string(sig.Action)),
		zap.String("desired", string(sig.Desired)),
		zap.String("previous", string(sig.Previous)),
		zap.String("size", sig.RawSize.String()),
	)

	if !sig.Actionable() {
		log.Info("signal not actionable", zap.ByteString("payload", truncate(payload, 512)))
		return Result{Status: StatusIgnored, Code: http.StatusOK, Message: "signal not actionable"}
	}

	if e.dedup.IsDuplicate(dedup.Key(sig, e.settings.DedupStrict), now) {
		log.Info("duplicate signal ignored")
		return e.failure(domain.ErrDuplicateSignal, Outcome{Target: sig.Desired})
	}

	log.Info("signal accepted")

	snap, err := e.snapshot.Get(ctx, false)
	if err != nil {
		return e.failure(errors.Wrap(domain.ErrMarketDataUnavailable, err.Error()), Outcome{Target: sig.Desired})
	}
	if snap.PriceAvailable() {
		price, _ := snap.Price.Float64()
		e.metrics.RecordLastPrice(e.settings.Pair.Symbol(), price)
	}

	out, err := e.executor.Execute(ctx, sig, snap)
	if err != nil {
		log.Warn("signal not executed", zap.Error(err), zap.Int("orders", len(out.Orders)))
		return e.failure(err, out)
	}

	log.Info("signal executed",
		zap.String("state_before", string(out.Previous)),
		zap.Int("orders", len(out.Orders)),
		zap.String("opened", out.Opened.String()),
		zap.Int("entries", out.Entries),
	)

	res = e.result(out)
	res.Status = StatusSuccess
	res.Code = http.StatusOK
	res.Message = out.Message
	return res
}

func (e *Engine) result(out Outcome) Result {
	res := Result{
		Symbol:   e.settings.Pair.Symbol(),
		Position: out.Target,
		Orders:   out.Orders,
		Entries:  out.Entries,
	}
	if len(out.Orders) > 0 {
		res.OrderType = orderTypeMarket
		res.Leverage = e.settings.Leverage
		res.Quantity = out.Orders[len(out.Orders)-1].Quantity.String()
	}
	if out.Price.IsPositive() {
		res.Price = out.Price.String()
	}
	return res
}

func (e *Engine) failure(err error, out Outcome) Result {
	status, code := Classify(err)
	res := e.result(out)
	res.Status = status
	res.Code = code
	res.Message = err.Error()
	if out.Message != "" && status == StatusIgnored {
		res.Message = out.Message
	}
	if status == StatusError {
		e.logger.Error("signal failed", zap.Int("code", code), zap.Error(err))
	}
	return res
}

// Classify maps an engine error onto a response status and HTTP code.
func Classify(err error) (Status, int) {
	switch {
	case err == nil:
		return StatusSuccess, http.StatusOK
	case errors.Is(err, domain.ErrMalformedSignal):
		return StatusIgnored, http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicateSignal), errors.Is(err, domain.ErrPyramidLimitReached):
		return StatusIgnored, http.StatusOK
	case errors.Is(err, domain.ErrMarketDataUnavailable):
		return StatusError, http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInsufficientExposure):
		return StatusError, http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrOrderPlacement):
		return StatusError, http.StatusBadGateway
	default:
		return StatusError, http.StatusInternalServerError
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

type nopRecorder struct{}

func (nopRecorder) RecordSignal(string, string)     {}
func (nopRecorder) RecordOrder(string, string)      {}
func (nopRecorder) RecordLastPrice(string, float64) {}
func (nopRecorder) RecordLatency(string, float64)   {}

