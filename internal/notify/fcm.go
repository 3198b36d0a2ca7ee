package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmMulticastLimit is the most tokens FCM accepts in one multicast.
const fcmMulticastLimit = 500

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMGateway sends through Firebase Cloud Messaging.
type FCMGateway struct {
	client multicastSender
}

// NewFCMGateway builds a gateway from a service-account JSON document.
func NewFCMGateway(ctx context.Context, credentialsJSON string) (*FCMGateway, error) {
	if credentialsJSON == "" {
		return nil, errors.New("firebase credentials are empty")
	}
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &FCMGateway{client: client}, nil
}

// SendMulticast splits tokens into FCM-sized chunks. A chunk that fails as a
// whole marks its tokens as transient failures; only when every chunk fails is
// an error returned.
func (g *FCMGateway) SendMulticast(ctx context.Context, msg Message) (BatchResult, error) {
	var (
		result  BatchResult
		lastErr error
		sent    bool
	)
	for start := 0; start < len(msg.Tokens); start += fcmMulticastLimit {
		end := start + fcmMulticastLimit
		if end > len(msg.Tokens) {
			end = len(msg.Tokens)
		}
		chunk := msg.Tokens[start:end]

		resp, err := g.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       chunk,
			Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
			Data:         msg.Data,
		})
		if err != nil {
			lastErr = err
			for _, token := range chunk {
				result.Results = append(result.Results, SendResult{Token: token, Code: CodeTransient, Err: err})
			}
			continue
		}
		sent = true
		for i, token := range chunk {
			if i >= len(resp.Responses) || resp.Responses[i] == nil {
				result.Results = append(result.Results, SendResult{Token: token, Code: CodeTransient})
				continue
			}
			r := resp.Responses[i]
			if r.Success {
				result.Results = append(result.Results, SendResult{Token: token, Success: true})
				continue
			}
			result.Results = append(result.Results, SendResult{Token: token, Code: classify(r.Error), Err: r.Error})
		}
	}
	if !sent && lastErr != nil {
		return BatchResult{}, lastErr
	}
	return result, nil
}

// Error predicates from the messaging package, swapped out in tests.
var (
	isUnregistered    = messaging.IsUnregistered
	isInvalidArgument = messaging.IsInvalidArgument
)

// classify maps an FCM per-token error to an ErrorCode. Only UNREGISTERED is
// permanent: INVALID_ARGUMENT is also returned for oversized or malformed
// payloads addressed to a healthy token.
func classify(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeTransient
	case isUnregistered(err):
		return CodeNotRegistered
	case isInvalidArgument(err):
		return CodeInvalidArgument
	default:
		return CodeTransient
	}
}
