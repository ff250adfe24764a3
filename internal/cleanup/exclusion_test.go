package cleanup

import "testing"

func TestMatchKeyword(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"Teste de envio", "teste"},
		{"DUPLICADO - Maria", "duplicado"},
		{"Orçamento inválido", "inválido"},
		{"Casamento Ana & João", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := matchKeyword(tt.value); got != tt.want {
			t.Errorf("matchKeyword(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestEvaluate(t *testing.T) {
	if v := evaluate("Teste webhook", "", ""); !v.Delete || v.Reason != "título contém teste" {
		t.Fatalf("title rule: %+v", v)
	}
	if v := evaluate("Casamento Rita", "lead fake", ""); !v.Delete || v.Reason != `motivo_perda contém "fake"` {
		t.Fatalf("loss reason rule: %+v", v)
	}
	if v := evaluate("Casamento Rita", "", "contato repetido"); !v.Delete || v.Reason != `motivo_desqualificacao contém "repetido"` {
		t.Fatalf("disqualification rule: %+v", v)
	}
	if v := evaluate("Casamento Rita", "Sem orçamento", "Fora do perfil"); v.Delete {
		t.Fatalf("clean deal must be kept: %+v", v)
	}
}
