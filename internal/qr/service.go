package qr

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/IT22056320/ev-booking-backend/internal/booking"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotApproved  = apperror.New(http.StatusConflict, "qr code is only available for approved bookings")
	ErrNoToken      = apperror.New(http.StatusNotFound, "no qr code has been issued for this booking")
	ErrInvalidToken = apperror.New(http.StatusUnauthorized, "invalid qr token")
	ErrTooEarly     = apperror.New(http.StatusForbidden, "check-in window has not opened yet")
	ErrExpired      = apperror.New(http.StatusGone, "qr token has expired")
	ErrWrongStatus  = apperror.New(http.StatusConflict, "booking is not in a checkable state")
)

// GraceWindow pads the booking interval on both sides for check-in scans.
const GraceWindow = 15 * time.Minute

// BookingStore is the slice of the booking repository the QR gate needs.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
	SetQR(ctx context.Context, id, token string, generatedAt time.Time) error
	ClearQR(ctx context.Context, id string) error
}

// ValidationResult is returned by a successful check-in scan.
type ValidationResult struct {
	BookingID     string
	BookingNumber string
	UserID        string
	StationID     string
	StartTime     time.Time
	EndTime       time.Time
	VehicleNumber string
}

type Service interface {
	// Issue mints a check-in token for an approved booking. Repeated calls
	// return the already issued token.
	Issue(ctx context.Context, bookingID string) (string, error)
	Get(ctx context.Context, bookingID string) (string, error)
	Validate(ctx context.Context, tokenString string) (*ValidationResult, error)
	// Invalidate revokes the stored token. A booking without a token is a no-op.
	Invalidate(ctx context.Context, bookingID string) error
}

type service struct {
	store  BookingStore
	signer *Signer
	log    *zap.Logger

	now func() time.Time
}

func NewService(store BookingStore, signer *Signer, log *zap.Logger) Service {
	return &service{
		store:  store,
		signer: signer,
		log:    log,
		now:    time.Now,
	}
}

func (s *service) Issue(ctx context.Context, bookingID string) (string, error) {
	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}

	if b.Status != booking.StatusApproved {
		return "", ErrNotApproved
	}
	if b.QRToken != "" {
		return b.QRToken, nil
	}

	now := s.now().UTC()
	token, err := s.signer.Sign(b.ID, b.UserID, b.StationID, b.VehicleNumber, b.StartTime, b.EndTime, now)
	if err != nil {
		return "", err
	}

	if err := s.store.SetQR(ctx, b.ID, token, now); err != nil {
		return "", err
	}

	s.log.Info("qr token issued",
		zap.String("bookingID", b.ID),
		zap.String("bookingNumber", b.BookingNumber))

	return token, nil
}

func (s *service) Get(ctx context.Context, bookingID string) (string, error) {
	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.QRToken == "" {
		return "", ErrNoToken
	}
	return b.QRToken, nil
}

func (s *service) Validate(ctx context.Context, tokenString string) (*ValidationResult, error) {
	claims, err := s.signer.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	b, err := s.store.GetByID(ctx, claims.BookingID)
	if err != nil {
		return nil, err
	}

	// The stored token is the only live one; a revoked or re-issued token
	// must not scan.
	if b.QRToken == "" || b.QRToken != tokenString {
		return nil, ErrInvalidToken
	}
	if b.Status != booking.StatusApproved {
		return nil, fmt.Errorf("%w: booking is %s", ErrWrongStatus, b.Status)
	}

	now := s.now().UTC()
	if now.Before(b.StartTime.Add(-GraceWindow)) {
		return nil, ErrTooEarly
	}
	if now.After(b.EndTime.Add(GraceWindow)) {
		return nil, ErrExpired
	}

	return &ValidationResult{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		UserID:        b.UserID,
		StationID:     b.StationID,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		VehicleNumber: b.VehicleNumber,
	}, nil
}

func (s *service) Invalidate(ctx context.Context, bookingID string) error {
	b, err := s.store.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.QRToken == "" {
		return nil
	}
	return s.store.ClearQR(ctx, bookingID)
}
