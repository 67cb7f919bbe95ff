package auth

import (
	"errors"
	"strings"
	"time"

	"voice-dashboard/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// RoomMinter signs media room access tokens with the media API key pair.
type RoomMinter struct {
	url    string
	key    string
	secret []byte
	ttl    time.Duration
}

func NewRoomMinter(cfg config.MediaConfig) (*RoomMinter, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("MEDIA_API_KEY and MEDIA_API_SECRET are required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RoomMinter{url: cfg.RoomURL, key: cfg.APIKey, secret: []byte(cfg.APISecret), ttl: ttl}, nil
}

// RoomGrant describes who joins which room.
type RoomGrant struct {
	Room     string
	Identity string
	Name     string
	Metadata string
}

type RoomToken struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	Room      string    `json:"room"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (m *RoomMinter) Mint(now time.Time, g RoomGrant) (RoomToken, error) {
	if strings.TrimSpace(g.Room) == "" || strings.TrimSpace(g.Identity) == "" {
		return RoomToken{}, errors.New("room and identity are required")
	}
	exp := now.Add(m.ttl)
	claims := RoomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.key,
			Subject:   g.Identity,
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name:     g.Name,
		Metadata: g.Metadata,
		Video: VideoGrant{
			Room:         g.Room,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return RoomToken{}, err
	}
	return RoomToken{URL: m.url, Token: signed, Room: g.Room, ExpiresAt: exp.UTC()}, nil
}

// ParseRoomToken verifies a token minted by m. Used by tests and the CLI.
func (m *RoomMinter) ParseRoomToken(token string, now time.Time) (RoomClaims, error) {
	var claims RoomClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.key),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return RoomClaims{}, err
	}
	return claims, nil
}
