// Package webhook ingests ActiveCampaign deal notifications and applies
// them to the canonical deal store.
package webhook

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Field is one custom field entry from a notification payload.
type Field struct {
	Key   string
	Value string
}

// DealPayload is the raw deal section of a notification, before any value
// coercion. String fields keep the wire text as-is.
type DealPayload struct {
	ID         string
	Title      string
	Pipeline   string
	Stage      string
	Status     string
	CreateDate string
	Fields     []Field
}

// Notification is the decoded change notification.
type Notification struct {
	Type string
	Deal *DealPayload
}

// flexValue accepts a JSON string, number, bool or array of those.
// ActiveCampaign is not consistent about value types across payloads.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = flexValue(flatten(raw))
	return nil
}

func flatten(raw interface{}) string {
	switch val := raw.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

type jsonDeal struct {
	ID            flexValue `json:"id"`
	Title         string    `json:"title"`
	Pipeline      string    `json:"pipeline"`
	PipelineTitle string    `json:"pipeline_title"`
	Stage         string    `json:"stage"`
	StageTitle    string    `json:"stage_title"`
	Status        flexValue `json:"status"`
	CreateDate    string    `json:"create_date"`
	Fields        []struct {
		Key   string    `json:"key"`
		Value flexValue `json:"value"`
	} `json:"fields"`
}

type jsonNotification struct {
	Type string    `json:"type"`
	Deal *jsonDeal `json:"deal"`
}

// DecodeJSON decodes a JSON notification body.
func DecodeJSON(body []byte) (Notification, error) {
	var raw jsonNotification
	if err := json.Unmarshal(body, &raw); err != nil {
		return Notification{}, fmt.Errorf("decode json payload: %w", err)
	}

	n := Notification{Type: raw.Type}
	if raw.Deal == nil {
		return n, nil
	}

	deal := &DealPayload{
		ID:         string(raw.Deal.ID),
		Title:      raw.Deal.Title,
		Pipeline:   firstNonEmpty(raw.Deal.PipelineTitle, raw.Deal.Pipeline),
		Stage:      firstNonEmpty(raw.Deal.StageTitle, raw.Deal.Stage),
		Status:     string(raw.Deal.Status),
		CreateDate: raw.Deal.CreateDate,
	}
	for _, f := range raw.Deal.Fields {
		deal.Fields = append(deal.Fields, Field{Key: f.Key, Value: string(f.Value)})
	}
	n.Deal = deal
	return n, nil
}

// DecodeForm decodes the bracket-keyed form encoding ActiveCampaign uses,
// e.g. deal[id], deal[fields][0][key]. Field entries are read by walking
// indexes from zero until the first gap.
func DecodeForm(values url.Values) Notification {
	n := Notification{Type: values.Get("type")}

	if !hasDealKeys(values) {
		return n
	}

	deal := &DealPayload{
		ID:         values.Get("deal[id]"),
		Title:      values.Get("deal[title]"),
		Pipeline:   firstNonEmpty(values.Get("deal[pipeline_title]"), values.Get("deal[pipeline]")),
		Stage:      firstNonEmpty(values.Get("deal[stage_title]"), values.Get("deal[stage]")),
		Status:     values.Get("deal[status]"),
		CreateDate: values.Get("deal[create_date]"),
	}
	for i := 0; ; i++ {
		keyName := fmt.Sprintf("deal[fields][%d][key]", i)
		if !hasKey(values, keyName) {
			break
		}
		deal.Fields = append(deal.Fields, Field{
			Key:   values.Get(keyName),
			Value: values.Get(fmt.Sprintf("deal[fields][%d][value]", i)),
		})
	}
	n.Deal = deal
	return n
}

// Decode picks the wire decoding from the request content type. Anything
// that is not JSON is treated as URL-encoded form data, mirroring how the
// CRM actually delivers notifications.
func Decode(contentType string, body []byte) (Notification, error) {
	if strings.Contains(contentType, "application/json") {
		return DecodeJSON(body)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return Notification{}, fmt.Errorf("decode form payload: %w", err)
	}
	return DecodeForm(values), nil
}

func hasDealKeys(values url.Values) bool {
	for key := range values {
		if strings.HasPrefix(key, "deal[") {
			return true
		}
	}
	return false
}

func hasKey(values url.Values, key string) bool {
	_, ok := values[key]
	return ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
