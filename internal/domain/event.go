package domain

import "time"

type EventType string

const (
	EventBookingCreated     EventType = "booking.created"
	EventBookingConfirmed   EventType = "booking.confirmed"
	EventBookingCancelled   EventType = "booking.cancelled"
	EventBookingRescheduled EventType = "booking.rescheduled"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusDelivered OutboxStatus = "DELIVERED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// OutboxEvent is a booking lifecycle fact awaiting asynchronous delivery.
// Written in the same transaction as the booking mutation it describes, so
// delivery is at-least-once and the request path never blocks on it.
type OutboxEvent struct {
	ID            int64
	EventID       string
	Type          EventType
	BusinessID    int64
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
