package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "Exam Coach" {
		t.Errorf("T(AppTitle) = %q, want 'Exam Coach'", got)
	}

	got = T(ctx, "DiagConnectionFailed")
	if got != "Connection to the grading service failed." {
		t.Errorf("T(DiagConnectionFailed) = %q", got)
	}
}

func TestTranslateTraditionalChinese(t *testing.T) {
	ctx := initLang(t, "zh-Hant")

	got := T(ctx, "DiagConnectionFailed")
	if got != "連接失敗。" {
		t.Errorf("T(DiagConnectionFailed) = %q, want '連接失敗。'", got)
	}

	got = T(ctx, "DiagEmptyResponse")
	if got != "AI 診斷引擎響應異常。" {
		t.Errorf("T(DiagEmptyResponse) = %q, want 'AI 診斷引擎響應異常。'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsAnswered", 1)
	if got1 != "1 question answered." {
		t.Errorf("Tp(QuestionsAnswered, 1) = %q, want '1 question answered.'", got1)
	}

	got5 := Tp(ctx, "QuestionsAnswered", 5)
	if got5 != "5 questions answered." {
		t.Errorf("Tp(QuestionsAnswered, 5) = %q, want '5 questions answered.'", got5)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "DiagMissingCredential", map[string]any{"Backend": "gemini"})
	if got != "No API key is configured for the gemini backend." {
		t.Errorf("Td(DiagMissingCredential) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestContextWithoutLocalizerFallsBackToEnglish(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := T(context.Background(), "AppTitle")
	if got != "Exam Coach" {
		t.Errorf("T(AppTitle) = %q, want 'Exam Coach'", got)
	}
}

func TestMiddlewareHonoursAcceptLanguage(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "DiagConnectionFailed")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "zh-Hant")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "連接失敗。" {
		t.Errorf("with Accept-Language zh-Hant got %q", got)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "Connection to the grading service failed." {
		t.Errorf("without Accept-Language got %q", got)
	}
}

func TestInitRejectsUnsupportedLanguage(t *testing.T) {
	if err := Init("fr"); err == nil {
		t.Fatal("expected an error for a language without a locale file")
	}
	if err := Init("not a tag!"); err == nil {
		t.Fatal("expected an error for an invalid tag")
	}
}
