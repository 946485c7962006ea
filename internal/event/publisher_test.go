package event

import "testing"

func TestDisabledPublisherIsNoOp(t *testing.T) {
	publisher, err := NewEventPublisher("", "drive.events")
	if err != nil {
		t.Fatalf("Unexpected error creating disabled publisher: %v", err)
	}

	if err := publisher.PublishGrantEvent(&GrantEvent{EventType: EventTypeGrantCreated}); err != nil {
		t.Errorf("Expected disabled publish to no-op, got %v", err)
	}
	if err := publisher.PublishDigestEvent(&DigestEvent{EventType: EventTypeDailyDigest}); err != nil {
		t.Errorf("Expected disabled digest publish to no-op, got %v", err)
	}
	if err := publisher.PublishBulkImportEvent(&BulkImportEvent{EventType: EventTypeBulkImported}); err != nil {
		t.Errorf("Expected disabled bulk import publish to no-op, got %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("Expected close to no-op, got %v", err)
	}
}

func TestNilPublisherIsNoOp(t *testing.T) {
	// A failed broker connection can leave callers holding a nil publisher;
	// it must behave like the disabled one, not crash.
	var publisher *EventPublisher

	if err := publisher.PublishGrantEvent(&GrantEvent{EventType: EventTypeGrantCreated}); err != nil {
		t.Errorf("Expected nil publisher publish to no-op, got %v", err)
	}
	if err := publisher.PublishDigestEvent(&DigestEvent{EventType: EventTypeDailyDigest}); err != nil {
		t.Errorf("Expected nil publisher digest publish to no-op, got %v", err)
	}
	if err := publisher.PublishBulkImportEvent(&BulkImportEvent{EventType: EventTypeBulkImported}); err != nil {
		t.Errorf("Expected nil publisher bulk import publish to no-op, got %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Errorf("Expected nil publisher close to no-op, got %v", err)
	}
}
