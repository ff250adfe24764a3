package webhook

import (
	"net/url"
	"testing"
)

func TestDecodeForm_BracketKeys(t *testing.T) {
	values := url.Values{}
	values.Set("type", "deal_update")
	values.Set("deal[id]", "123")
	values.Set("deal[title]", "Casamento Ana & João")
	values.Set("deal[pipeline_title]", "SDR Weddings")
	values.Set("deal[status]", "0")
	values.Set("deal[fields][0][key]", "Orçamento:")
	values.Set("deal[fields][0][value]", "R$ 35.000")
	values.Set("deal[fields][1][key]", "Destino")
	values.Set("deal[fields][1][value]", "Toscana")

	n := DecodeForm(values)

	if n.Type != "deal_update" {
		t.Fatalf("type: %q", n.Type)
	}
	if n.Deal == nil {
		t.Fatal("deal section missing")
	}
	if n.Deal.ID != "123" || n.Deal.Pipeline != "SDR Weddings" {
		t.Fatalf("deal base fields: %+v", n.Deal)
	}
	if len(n.Deal.Fields) != 2 {
		t.Fatalf("expected 2 custom fields, got %d", len(n.Deal.Fields))
	}
	if n.Deal.Fields[0].Key != "Orçamento:" || n.Deal.Fields[0].Value != "R$ 35.000" {
		t.Fatalf("field 0: %+v", n.Deal.Fields[0])
	}
	if n.Deal.Fields[1].Key != "Destino" {
		t.Fatalf("field order lost: %+v", n.Deal.Fields)
	}
}

func TestDecodeForm_NoDealSection(t *testing.T) {
	values := url.Values{}
	values.Set("type", "contact_add")

	n := DecodeForm(values)
	if n.Deal != nil {
		t.Fatalf("expected nil deal, got %+v", n.Deal)
	}
}

func TestDecodeJSON_FlexibleValueTypes(t *testing.T) {
	body := []byte(`{
		"type": "deal_add",
		"deal": {
			"id": 42,
			"title": "Casamento Rita",
			"pipeline_title": "Closer Weddings",
			"status": 1,
			"fields": [
				{"key": "Número de convidados:", "value": 120},
				{"key": "Qualificado para SQL", "value": true},
				{"key": "Motivos de qualificação SDR", "value": ["orçamento", "data definida"]}
			]
		}
	}`)

	n, err := DecodeJSON(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Deal.ID != "42" || n.Deal.Status != "1" {
		t.Fatalf("numeric values not normalized: %+v", n.Deal)
	}
	if n.Deal.Fields[0].Value != "120" {
		t.Fatalf("numeric field value: %q", n.Deal.Fields[0].Value)
	}
	if n.Deal.Fields[1].Value != "true" {
		t.Fatalf("bool field value: %q", n.Deal.Fields[1].Value)
	}
	if n.Deal.Fields[2].Value != "orçamento, data definida" {
		t.Fatalf("array field value: %q", n.Deal.Fields[2].Value)
	}
}

func TestDecode_ContentTypeDispatch(t *testing.T) {
	jsonBody := []byte(`{"type":"deal_delete","deal":{"id":"7"}}`)
	n, err := Decode("application/json; charset=utf-8", jsonBody)
	if err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if n.Type != "deal_delete" || n.Deal.ID != "7" {
		t.Fatalf("json notification: %+v", n)
	}

	formBody := []byte("type=deal_delete&deal%5Bid%5D=7")
	n, err = Decode("application/x-www-form-urlencoded", formBody)
	if err != nil {
		t.Fatalf("form decode: %v", err)
	}
	if n.Type != "deal_delete" || n.Deal.ID != "7" {
		t.Fatalf("form notification: %+v", n)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	if _, err := Decode("application/json", []byte(`{"type":`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
