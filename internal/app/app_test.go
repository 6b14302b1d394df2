package app

import (
	"errors"
	"testing"

	"readnest/pkg/auth"
	"readnest/pkg/domain"
)

func TestSignUpLoginFlow(t *testing.T) {
	a, _ := newTestApp(t)

	user, token, err := a.SignUp("Reader@Example.com", "correct-horse", SignupPrefs{
		PreferredGenres: "Fantasy;Mystery",
		LanguagePref:    "en",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.OnboardingDone {
		t.Fatalf("onboarding should start unfinished")
	}
	if token == "" {
		t.Fatalf("signup should open a session")
	}

	got, err := a.CurrentUser(token)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("session resolved to wrong user")
	}

	if _, _, err := a.SignUp("reader@example.com", "another-pass", SignupPrefs{}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("duplicate signup err = %v", err)
	}
	if _, _, err := a.SignUp("x@example.com", "short", SignupPrefs{}); !errors.Is(err, auth.ErrPasswordTooShort) {
		t.Fatalf("short password err = %v", err)
	}

	if _, _, err := a.Login("reader@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password err = %v", err)
	}
	_, loginToken, err := a.Login("reader@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := a.Logout(loginToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := a.CurrentUser(loginToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("logged-out token err = %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	a, _ := newTestApp(t)
	user, _, err := a.SignUp("reader@example.com", "correct-horse", SignupPrefs{})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	genres := "SciFi"
	done := true
	updated, err := a.UpdateProfile(user, domain.ProfileUpdate{
		PreferredGenres: &genres,
		OnboardingDone:  &done,
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.PreferredGenres != "SciFi" || !updated.OnboardingDone {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.Email != user.Email {
		t.Fatalf("untouched field changed: %q", updated.Email)
	}
}

func TestGetBookEitherIdentifier(t *testing.T) {
	a, st := newTestApp(t)
	seedBook(t, st, domain.Book{ID: "b1", BookKey: "OL99", Title: "One"})

	byID, err := a.GetBook("b1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	byKey, err := a.GetBook("OL99")
	if err != nil {
		t.Fatalf("get by key: %v", err)
	}
	if byID.ID != byKey.ID {
		t.Fatalf("identifier forms resolved different books")
	}
	if _, err := a.GetBook("nope"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("missing book err = %v", err)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	a, st := newTestApp(t)
	seedBook(t, st, domain.Book{ID: "b1", BookKey: "OL99", Title: "One"})
	user := onboardedUser()

	if _, err := a.SubmitFeedback(user, "b1", 0, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("rating 0 err = %v", err)
	}
	if _, err := a.SubmitFeedback(user, "b1", 5.5, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("rating 5.5 err = %v", err)
	}
	if _, err := a.SubmitFeedback(user, "nope", 4, ""); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("missing book err = %v", err)
	}

	rec, err := a.SubmitFeedback(user, "OL99", 4, "liked it")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.BookID != "b1" {
		t.Fatalf("feedback should store the canonical book id, got %q", rec.BookID)
	}
	if has, _ := st.HasFeedback(user.ID); !has {
		t.Fatalf("feedback not persisted")
	}
}

func TestHideBookStoresCanonicalID(t *testing.T) {
	a, st := newTestApp(t)
	seedBook(t, st, domain.Book{ID: "b1", BookKey: "OL99", Title: "One"})
	user := onboardedUser()

	if _, err := a.HideBook(user, "OL99"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	ids, err := st.ListHiddenBookIDs(user.ID)
	if err != nil {
		t.Fatalf("list hidden: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b1" {
		t.Fatalf("hidden ids = %v, want [b1]", ids)
	}
}
