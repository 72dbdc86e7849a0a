package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agenda-backend/utils"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

var ErrNoInstance = errors.New("whatsapp instance not configured")

// Delivery is what the gateway told us about an accepted message.
type Delivery struct {
	Channel    string `json:"channel"`
	ProviderID string `json:"providerId,omitempty"`
}

type Messenger interface {
	Channel() string
	// Recipient normalizes a phone into the gateway's address format.
	Recipient(phone string) string
	Send(ctx context.Context, instance, recipient, text string) (Delivery, error)
}

// EvolutionMessenger talks to an Evolution API WhatsApp gateway.
type EvolutionMessenger struct {
	client          *resty.Client
	defaultInstance string
}

type evolutionSendText struct {
	Number      string `json:"number"`
	Text        string `json:"text"`
	LinkPreview bool   `json:"linkPreview"`
}

type evolutionSendResult struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}

func NewEvolutionMessenger(baseURL, apiKey, defaultInstance string) *EvolutionMessenger {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("apikey", apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(20 * time.Second)
	return &EvolutionMessenger{client: client, defaultInstance: defaultInstance}
}

func (m *EvolutionMessenger) Channel() string { return "evolution" }

func (m *EvolutionMessenger) Recipient(phone string) string { return utils.WhatsAppID(phone) }

func (m *EvolutionMessenger) Send(ctx context.Context, instance, recipient, text string) (Delivery, error) {
	if instance == "" {
		instance = m.defaultInstance
	}
	if instance == "" {
		return Delivery{}, ErrNoInstance
	}

	var out evolutionSendResult
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(evolutionSendText{Number: recipient, Text: text, LinkPreview: false}).
		SetResult(&out).
		Post("/message/sendText/" + url.PathEscape(instance))
	if err != nil {
		return Delivery{}, fmt.Errorf("evolution [%s] send: %w", instance, err)
	}
	if resp.IsError() {
		return Delivery{}, fmt.Errorf("evolution [%s] send: status %d: %s", instance, resp.StatusCode(), resp.String())
	}
	return Delivery{Channel: m.Channel(), ProviderID: out.Key.ID}, nil
}

// Ping checks the gateway is reachable. Failure is only logged by the caller.
func (m *EvolutionMessenger) Ping(ctx context.Context) error {
	var out struct {
		Message string `json:"message"`
	}
	resp, err := m.client.R().SetContext(ctx).SetResult(&out).Get("/")
	if err != nil {
		return fmt.Errorf("evolution ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("evolution ping: status %d", resp.StatusCode())
	}
	log.Info().Str("message", out.Message).Msg("Evolution API online")
	return nil
}

// TwilioMessenger sends WhatsApp messages through Twilio.
type TwilioMessenger struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioMessenger(accountSID, authToken, from string) *TwilioMessenger {
	return NewTwilioMessengerWithHTTPClient(accountSID, authToken, from, nil)
}

// NewTwilioMessengerWithHTTPClient sends through httpClient; nil keeps the
// library default.
func NewTwilioMessengerWithHTTPClient(accountSID, authToken, from string, httpClient *http.Client) *TwilioMessenger {
	base := &twilioClient.Client{
		Credentials: twilioClient.NewCredentials(accountSID, authToken),
		HTTPClient:  httpClient,
	}
	base.SetAccountSid(accountSID)
	return &TwilioMessenger{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{Client: base}),
		from:   from,
	}
}

func (m *TwilioMessenger) Channel() string { return "twilio" }

func (m *TwilioMessenger) Recipient(phone string) string { return utils.TwilioWhatsApp(phone) }

// Send ignores instance; Twilio routes by sender number.
func (m *TwilioMessenger) Send(ctx context.Context, _ string, recipient, text string) (Delivery, error) {
	if err := ctx.Err(); err != nil {
		return Delivery{}, err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(utils.TwilioWhatsApp(m.from))
	params.SetBody(text)

	resp, err := m.client.Api.CreateMessage(params)
	if err != nil {
		return Delivery{}, fmt.Errorf("twilio send: %w", err)
	}
	d := Delivery{Channel: m.Channel()}
	if resp.Sid != nil {
		d.ProviderID = *resp.Sid
	}
	return d, nil
}
