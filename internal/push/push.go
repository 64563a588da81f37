package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dukerupert/famwell/internal/model"
)

// ErrExpired is returned when the push service reports the subscription gone.
var ErrExpired = errors.New("push subscription expired")

// Payload is the JSON the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`

	// Urgent payloads are shown even when the app is focused.
	Urgent bool `json:"urgent,omitempty"`
}

type sendFunc func(message []byte, s *webpush.Subscription, options *webpush.Options) (*http.Response, error)

// Service sends VAPID-signed web push messages.
type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	send       sendFunc
}

func NewService(publicKey, privateKey, subscriber string) *Service {
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		send:       webpush.SendNotification,
	}
}

// VAPIDPublicKey is handed to browsers when they subscribe.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

func (s *Service) Send(sub *model.PushSubscription, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	urgency := webpush.UrgencyNormal
	if payload.Urgent {
		urgency = webpush.UrgencyHigh
	}
	resp, err := s.send(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		Topic:           payload.Tag,
		Urgency:         urgency,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// GenerateVAPIDKeys returns a base64url P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return "", "", fmt.Errorf("convert public key: %w", err)
	}
	priv := make([]byte, 32)
	key.D.FillBytes(priv)

	return base64.RawURLEncoding.EncodeToString(pub.Bytes()),
		base64.RawURLEncoding.EncodeToString(priv), nil
}
