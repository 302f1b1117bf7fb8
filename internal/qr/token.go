package qr

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the check-in token payload. The token never expires on its own;
// the validity window is evaluated against the booking at scan time.
type Claims struct {
	BookingID     string `json:"bid"`
	UserID        string `json:"uid"`
	StationID     string `json:"sid"`
	StartTime     string `json:"st"`
	EndTime       string `json:"et"`
	VehicleNumber string `json:"veh"`
	Signature     string `json:"sig"`
	jwt.RegisteredClaims
}

// Signer mints and parses signed check-in tokens.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// integritySignature binds the token to the booking's identity fields so a
// payload swap is detectable even with a leaked signing key.
func integritySignature(bookingID, userID, stationID string, start time.Time) string {
	payload := fmt.Sprintf("%s|%s|%s|%s", bookingID, userID, stationID, start.UTC().Format(time.RFC3339))
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func (s *Signer) Sign(bookingID, userID, stationID, vehicleNumber string, start, end, issuedAt time.Time) (string, error) {
	claims := Claims{
		BookingID:     bookingID,
		UserID:        userID,
		StationID:     stationID,
		StartTime:     start.UTC().Format(time.RFC3339),
		EndTime:       end.UTC().Format(time.RFC3339),
		VehicleNumber: vehicleNumber,
		Signature:     integritySignature(bookingID, userID, stationID, start),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt.UTC()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign check-in token: %w", err)
	}
	return signed, nil
}

// Parse verifies the JWT signature and the embedded integrity signature.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	start, err := time.Parse(time.RFC3339, claims.StartTime)
	if err != nil {
		return nil, ErrInvalidToken
	}
	want := integritySignature(claims.BookingID, claims.UserID, claims.StationID, start)
	if claims.Signature != want {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
