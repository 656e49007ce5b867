package mqpayload

import (
	"encoding/json"
	"fmt"
)

// Action tells consumers what a message asks them to do.
type Action string

// Recognised actions.
const (
	ActionCreate  Action = "CREATE"
	ActionUpdate  Action = "UPDATE"
	ActionDelete  Action = "DELETE"
	ActionPatch   Action = "PATCH"
	ActionDefault Action = "DEFAULT"
)

// ParseAction returns the Action called name.
func ParseAction(name string) (Action, error) {
	action := Action(name)
	if err := action.validate(); err != nil {
		return "", err
	}

	return action, nil
}

func (a Action) validate() error {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionPatch, ActionDefault:
		return nil
	case "":
		return ErrMissingAction
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, string(a))
	}
}

// Envelope is the JSON body produced by FormatMessage.
type Envelope struct {
	Payload   string `json:"payload"`
	Action    Action `json:"action"`
	RequestID string `json:"requestId,omitempty"`
}

// FormatMessage wraps payload in an Envelope and returns it as a message
// body. requestID is optional. Validation happens before anything is sent.
func FormatMessage(payload string, action Action, requestID string) (string, error) {
	if payload == "" {
		return "", ErrEmptyBody
	}

	if err := action.validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(Envelope{
		Payload:   payload,
		Action:    action,
		RequestID: requestID,
	})
	if err != nil {
		return "", err
	}

	return string(body), nil
}

// ParseEnvelope decodes a message body written by FormatMessage.
func ParseEnvelope(body string) (*Envelope, error) {
	envelope := &Envelope{}
	if err := json.Unmarshal([]byte(body), envelope); err != nil {
		return nil, fmt.Errorf("%w: body is not an envelope: %v", ErrValidation, err)
	}

	if err := envelope.Action.validate(); err != nil {
		return nil, err
	}

	return envelope, nil
}
