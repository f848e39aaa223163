package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"finansix/internal/domain/installment"
)

const (
	channelName       = "installment_purchase_created"
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
	explodeTimeout    = 30 * time.Second
)

// PurchaseNotification is the payload sent by the transactions insert trigger.
type PurchaseNotification struct {
	TransactionID string `json:"transaction_id"`
	HouseholdID   string `json:"household_id"`
	ActorID       string `json:"actor_id"`
}

// Reconciler explodes a purchase that has no installments yet.
type Reconciler interface {
	Reconcile(ctx context.Context, householdID, transactionID string) (*installment.Result, error)
}

// InstallmentListener explodes installment purchases announced over
// LISTEN/NOTIFY. It covers purchases inserted outside the API and purchases
// whose synchronous explosion failed.
type InstallmentListener struct {
	connStr    string
	reconciler Reconciler
	log        zerolog.Logger
	shutdownCh chan struct{}
	done       chan struct{}
}

func NewInstallmentListener(connStr string, reconciler Reconciler, log zerolog.Logger) *InstallmentListener {
	return &InstallmentListener{
		connStr:    connStr,
		reconciler: reconciler,
		log:        log.With().Str("component", "installment_listener").Logger(),
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening for notifications in a background goroutine
func (l *InstallmentListener) Start(ctx context.Context) {
	go l.listen(ctx)
	l.log.Info().Str("channel", channelName).Msg("Installment listener started")
}

// Stop gracefully shuts down the listener
func (l *InstallmentListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	l.log.Info().Msg("Installment listener stopped")
}

func (l *InstallmentListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			l.log.Info().Msg("Reconnecting to PostgreSQL for notifications")
		}
	}
}

func (l *InstallmentListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			l.log.Debug().Msg("Connected to notification channel")
		case pq.ListenerEventDisconnected:
			l.log.Warn().Err(err).Msg("Disconnected from notification channel")
		case pq.ListenerEventReconnected:
			l.log.Info().Msg("Reconnected to notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			l.log.Error().Err(err).Msg("Notification connection attempt failed")
		}
	})
	defer listener.Close()

	if err := listener.Listen(channelName); err != nil {
		l.log.Error().Err(err).Str("channel", channelName).Msg("Failed to listen on channel")
		return
	}

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case notification := <-listener.Notify:
			if notification == nil {
				// Connection lost, break to reconnect
				return
			}
			l.handleNotification(notification)
		case <-time.After(pingInterval):
			go func() {
				if err := listener.Ping(); err != nil {
					l.log.Warn().Err(err).Msg("Listener ping failed")
				}
			}()
		}
	}
}

func (l *InstallmentListener) handleNotification(notification *pq.Notification) {
	payload, err := parsePayload(notification.Extra)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to parse notification payload")
		return
	}

	// The parent ctx may be cancelled during shutdown
	go l.reconcile(context.Background(), payload)
}

func (l *InstallmentListener) reconcile(ctx context.Context, payload PurchaseNotification) {
	ctx, cancel := context.WithTimeout(ctx, explodeTimeout)
	defer cancel()

	log := l.log.With().
		Str("transaction_id", payload.TransactionID).
		Str("household_id", payload.HouseholdID).
		Str("actor_id", payload.ActorID).
		Logger()

	res, err := l.reconciler.Reconcile(ctx, payload.HouseholdID, payload.TransactionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to explode installment purchase")
		return
	}

	log.Debug().
		Str("outcome", string(res.Outcome)).
		Int("installments", len(res.Installments)).
		Msg("Installment purchase reconciled")
}

func parsePayload(extra string) (PurchaseNotification, error) {
	var payload PurchaseNotification
	if err := json.Unmarshal([]byte(extra), &payload); err != nil {
		return payload, fmt.Errorf("invalid payload: %w", err)
	}
	if payload.TransactionID == "" || payload.HouseholdID == "" {
		return payload, fmt.Errorf("invalid payload: missing transaction or household id")
	}
	return payload, nil
}
