package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"trivia-backend/internal/models"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	IdentityKey contextKey = "identity"

	DeviceIDHeader = "X-Device-ID"
	guestPrefix    = "guest:"
	guestNameLen   = 6
	maxDeviceIDLen = 128
)

var (
	errMissingToken = errors.New("missing token")
	errTokenExpired = errors.New("token has expired")
	errInvalidToken = errors.New("invalid token")
)

type JWTAuth struct {
	Secret []byte
}

func NewJWTAuth(secret string) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret)}
}

// GenerateAccessToken creates a JWT with 15 minute expiry
func (j *JWTAuth) GenerateAccessToken(userID uuid.UUID, email, name string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"email":   email,
		"name":    name,
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ParseToken verifies tokenStr and returns the user it was issued for.
func (j *JWTAuth) ParseToken(tokenStr string) (models.AuthenticatedUser, uuid.UUID, error) {
	if tokenStr == "" {
		return models.AuthenticatedUser{}, uuid.Nil, errMissingToken
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.AuthenticatedUser{}, uuid.Nil, errTokenExpired
		}
		return models.AuthenticatedUser{}, uuid.Nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.AuthenticatedUser{}, uuid.Nil, errInvalidToken
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return models.AuthenticatedUser{}, uuid.Nil, errInvalidToken
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name, _ = claims["email"].(string)
	}

	return models.AuthenticatedUser{
		ID:              userID.String(),
		DisplayName:     name,
		IsAuthenticated: true,
	}, userID, nil
}

// Middleware validates JWT and attaches user_id and identity to context
func (j *JWTAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization header", r)
			return
		}

		tokenStr, ok := bearerToken(authHeader)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization format", r)
			return
		}

		identity, userID, err := j.ParseToken(tokenStr)
		if err != nil {
			if errors.Is(err, errTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
			}
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity resolves who is playing without requiring an account: a valid
// bearer token wins, then a device id header or query parameter. Requests
// with neither pass through anonymous.
func (j *JWTAuth) Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if tokenStr, ok := bearerToken(r.Header.Get("Authorization")); ok {
			identity, userID, err := j.ParseToken(tokenStr)
			if err != nil {
				if errors.Is(err, errTokenExpired) {
					writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired", r)
				} else {
					writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", r)
				}
				return
			}
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		deviceID := r.Header.Get(DeviceIDHeader)
		if deviceID == "" {
			deviceID = r.URL.Query().Get("device_id")
		}
		if guest, ok := GuestIdentity(deviceID); ok {
			ctx = context.WithValue(ctx, IdentityKey, guest)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIdentity rejects requests that Identity left anonymous.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetIdentity(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "IDENTITY_REQUIRED", "Sign in or send an X-Device-ID header", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GuestIdentity builds the device-scoped identity for an anonymous player.
func GuestIdentity(deviceID string) (models.AuthenticatedUser, bool) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" || len(deviceID) > maxDeviceIDLen {
		return models.AuthenticatedUser{}, false
	}

	short := deviceID
	if len(short) > guestNameLen {
		short = short[:guestNameLen]
	}
	return models.AuthenticatedUser{
		ID:              guestPrefix + deviceID,
		DisplayName:     "Guest-" + short,
		IsAuthenticated: false,
	}, true
}

// GetUserID extracts user_id from request context
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

// GetIdentity extracts the player identity from request context.
func GetIdentity(ctx context.Context) (models.AuthenticatedUser, bool) {
	identity, ok := ctx.Value(IdentityKey).(models.AuthenticatedUser)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if requestID == "" {
		requestID = r.Header.Get(RequestIDHeader)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
