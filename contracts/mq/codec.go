package mq

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownEventType = errors.New("unknown event type")

// Encode renders an event as a flat JSON object carrying a "type" field next to
// the payload fields.
func Encode(evt Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("event %s is not a JSON object: %w", evt.EventType(), err)
	}
	typ, err := json.Marshal(evt.EventType())
	if err != nil {
		return nil, err
	}
	fields["type"] = typ
	return json.Marshal(fields)
}

// PeekType reads the "type" field of an encoded event.
func PeekType(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == "" {
		return "", ErrUnknownEventType
	}
	return head.Type, nil
}

// Decode parses an event published on a project topic.
func Decode(data []byte) (Event, error) {
	typ, err := PeekType(data)
	if err != nil {
		return nil, err
	}

	var evt Event
	switch typ {
	case TypeMilestoneProposed:
		evt, err = decodeAs[MilestoneProposed](data)
	case TypeMilestoneAccepted:
		evt, err = decodeAs[MilestoneAccepted](data)
	case TypeMilestoneEditRequested:
		evt, err = decodeAs[MilestoneEditRequested](data)
	case TypeMilestoneEditConfirmed:
		evt, err = decodeAs[MilestoneEditConfirmed](data)
	case TypeMilestoneDeleteRequested:
		evt, err = decodeAs[MilestoneDeleteRequested](data)
	case TypeMilestoneDeleteConfirmed:
		evt, err = decodeAs[MilestoneDeleteConfirmed](data)
	case TypeMilestoneDeleted:
		evt, err = decodeAs[MilestoneDeleted](data)
	case TypeMilestoneImagesUploaded:
		evt, err = decodeAs[MilestoneImagesUploaded](data)
	case TypeMilestoneCompleted:
		evt, err = decodeAs[MilestoneCompleted](data)
	case TypePaymentRequested:
		evt, err = decodeAs[PaymentRequested](data)
	case TypeDocumentUploaded:
		evt, err = decodeAs[DocumentUploaded](data)
	case TypeDocumentViewed:
		evt, err = decodeAs[DocumentViewed](data)
	case TypeMessagePosted:
		evt, err = decodeAs[MessagePosted](data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, typ)
	}
	if err != nil {
		return nil, err
	}
	return evt, nil
}

// DecodeNotification parses an event published on a user notification topic.
func DecodeNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, err
	}
	if n.Type == "" {
		return Notification{}, ErrUnknownEventType
	}
	return n, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// MilestoneIDOf returns the milestone an event refers to, if any.
func MilestoneIDOf(evt Event) string {
	switch e := evt.(type) {
	case MilestoneProposed:
		return e.MilestoneID
	case MilestoneAccepted:
		return e.MilestoneID
	case MilestoneEditRequested:
		return e.MilestoneID
	case MilestoneEditConfirmed:
		return e.MilestoneID
	case MilestoneDeleteRequested:
		return e.MilestoneID
	case MilestoneDeleteConfirmed:
		return e.MilestoneID
	case MilestoneDeleted:
		return e.MilestoneID
	case MilestoneImagesUploaded:
		return e.MilestoneID
	case MilestoneCompleted:
		return e.MilestoneID
	case PaymentRequested:
		return e.MilestoneID
	case DocumentUploaded:
		return e.MilestoneID
	case Notification:
		return e.MilestoneID
	}
	return ""
}
