package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JDEditz/Messaging-Web-App/internal/mocks"
	"github.com/JDEditz/Messaging-Web-App/internal/telemetry"
)

func TestEmitBuildsEnvelope(t *testing.T) {
	publisher := new(mocks.AuditPublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.messaging", "messaging-service", "test")

	userID := int64(42)
	publisher.On("Publish", mock.Anything, "audit_log.messaging", mock.MatchedBy(func(event any) bool {
		envelope, ok := event.(telemetry.AuditEnvelope)
		if !ok {
			return false
		}
		return envelope.EventType == "audit_log" &&
			envelope.Service == "messaging-service" &&
			envelope.Environment == "test" &&
			envelope.RequestID == "req-1" &&
			envelope.UserID != nil && *envelope.UserID == 42 &&
			envelope.Payload.Level == "INFO" &&
			envelope.Payload.Text == "conversation created"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), "INFO", "conversation created", "req-1", &userID)
	publisher.AssertExpectations(t)
}

func TestEmitWithoutPublisherIsNoop(t *testing.T) {
	emitter := telemetry.NewAuditEmitter(nil, "audit_log.messaging", "messaging-service", "test")

	require.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "noop", "req-1", nil)
	})
}

func TestEmitSurvivesPublishFailure(t *testing.T) {
	publisher := new(mocks.AuditPublisherMock)
	emitter := telemetry.NewAuditEmitter(publisher, "audit_log.messaging", "messaging-service", "test")

	publisher.On("Publish", mock.Anything, "audit_log.messaging", mock.Anything).
		Return(assert.AnError).Once()

	emitter.Emit(context.Background(), "ERROR", "boom", "req-2", nil)
	publisher.AssertExpectations(t)
}
