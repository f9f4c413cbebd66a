package i18n

import (
	"context"
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

func TestTranslateRomanian(t *testing.T) {
	ctx := initLang(t, "ro")

	got := T(ctx, "LoginError")
	if got != "Utilizator sau parolă incorectă!" {
		t.Errorf("T(LoginError) = %q", got)
	}

	got = T(ctx, "AccountPending")
	if got != "Contul tău așteaptă aprobarea profesorului!" {
		t.Errorf("T(AccountPending) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "LoginError")
	if got != "Неверное имя пользователя или пароль!" {
		t.Errorf("T(LoginError) = %q", got)
	}

	got = T(ctx, "AccountBlocked")
	if got != "Аккаунт заблокирован. Обратитесь к преподавателю." {
		t.Errorf("T(AccountBlocked) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "ro")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want the key itself", got)
	}
}

func TestFallbackWithoutLocalizer(t *testing.T) {
	if err := Init("ro"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// No localizer in context: the Romanian default applies.
	got := T(context.Background(), "UserExists")
	if got != "Acest nume de utilizator există deja!" {
		t.Errorf("T(UserExists) = %q", got)
	}
}
