package firebase

import (
	"context"
	"log"

	"firebase.google.com/go/v4/messaging"
)

// PushResult aggregates a multicast send: per-token success counts
// plus the tokens the provider reported as dead (unregistered or
// malformed), which the caller should drop from its registry.
type PushResult struct {
	Success       int
	Failed        int
	InvalidTokens []string
}

// FCMClient wraps the Firebase messaging client for multicast pushes
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient creates a new FCMClient
func NewFCMClient(client *messaging.Client) *FCMClient {
	return &FCMClient{client: client}
}

// SendMulticast fans one notification out to all tokens in a single
// batch and inspects the per-token responses
func (c *FCMClient) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*PushResult, error) {
	result := &PushResult{}
	if len(tokens) == 0 {
		return result, nil
	}

	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:   data,
		Tokens: tokens,
	}

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, err
	}

	result.Success = response.SuccessCount
	result.Failed = response.FailureCount

	for idx, resp := range response.Responses {
		if resp.Success {
			continue
		}
		if messaging.IsUnregistered(resp.Error) || messaging.IsInvalidArgument(resp.Error) {
			result.InvalidTokens = append(result.InvalidTokens, tokens[idx])
		}
	}

	log.Printf("[Firebase] Multicast sent - success: %d, failure: %d", result.Success, result.Failed)
	return result, nil
}
