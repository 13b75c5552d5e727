package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func textEvent(user, text string) models.InboundEvent {
	return models.InboundEvent{UserID: user, Kind: models.EventText, Text: text, Time: testNow.UnixMilli()}
}

func mediaEvent(user, mediaID string) models.InboundEvent {
	return models.InboundEvent{
		UserID: user,
		Kind:   models.EventMedia,
		Media:  &models.MediaRef{ID: mediaID, MimeType: "image/jpeg"},
		Time:   testNow.UnixMilli(),
	}
}

func buttonEvent(user, buttonID string) models.InboundEvent {
	return models.InboundEvent{UserID: user, Kind: models.EventButton, ButtonID: buttonID, Time: testNow.UnixMilli()}
}

// runBasicFlow drives a fresh session through the four field answers and
// returns the final outcome.
func runBasicFlow(t *testing.T, f *Flow, user string) models.Outcome {
	t.Helper()
	out := f.Transition(nil, textEvent(user, "merhaba"), testNow)
	answers := []string{"Ahmet Yılmaz", "05551234567", "Ahmet@Example.COM", "İstanbul"}
	for _, answer := range answers {
		out = f.Transition(out.Session, textEvent(user, answer), testNow)
	}
	return out
}

func TestTransitionRestartCreatesSession(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	for _, greeting := range []string{"merhaba", "MERHABA", "Selam", "kayıt", "baştan"} {
		out := f.Transition(nil, textEvent("u1", greeting), testNow)
		if out.Session == nil {
			t.Fatalf("greeting %q: expected a fresh session", greeting)
		}
		if out.Session.Stage != models.StageAwaitingName {
			t.Errorf("greeting %q: stage = %q, want %q", greeting, out.Session.Stage, models.StageAwaitingName)
		}
		if out.Reply == nil || out.Reply.Kind != models.ReplyText {
			t.Errorf("greeting %q: expected a text welcome reply", greeting)
		}
	}
}

func TestTransitionUnknownTextWithoutSession(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "rastgele bir mesaj"), testNow)
	if out.Session != nil {
		t.Error("unsolicited text must not create a session")
	}
	if out.Reply == nil || out.Reply.Kind != models.ReplyButtons {
		t.Error("expected a menu reply with buttons")
	}
}

func TestTransitionInvalidAnswerIncrementsAttempts(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	start := f.Transition(nil, textEvent("u1", "merhaba"), testNow)

	out := f.Transition(start.Session, textEvent("u1", "A"), testNow)
	if out.Session == nil {
		t.Fatal("session must survive a failed attempt")
	}
	if out.Session.Stage != models.StageAwaitingName {
		t.Errorf("stage = %q, want %q", out.Session.Stage, models.StageAwaitingName)
	}
	if out.Session.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", out.Session.Attempts)
	}
	if out.Delete {
		t.Error("single failure must not delete the session")
	}
}

func TestTransitionLastAttemptWarning(t *testing.T) {
	f := NewFlow(models.FlowBasic, 3)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "A"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "B"), testNow)
	if out.Session == nil || out.Session.Attempts != 2 {
		t.Fatalf("expected attempts=2, got %+v", out.Session)
	}
	if !strings.Contains(out.Reply.Text, "Son bir deneme") {
		t.Errorf("second failure should warn about the final attempt, got %q", out.Reply.Text)
	}
}

func TestTransitionAttemptsExhaustedDeletesSession(t *testing.T) {
	f := NewFlow(models.FlowBasic, 3)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	for i := 0; i < 3; i++ {
		out = f.Transition(out.Session, textEvent("u1", "?"), testNow)
	}
	if !out.Delete {
		t.Error("third failure must delete the session")
	}
	if out.Session != nil {
		t.Error("terminated outcome must not carry a session")
	}
	if !strings.Contains(out.Reply.Text, "Çok fazla") {
		t.Errorf("expected termination message, got %q", out.Reply.Text)
	}
}

func TestTransitionCancelDeletesSession(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "Ahmet Yılmaz"), testNow)

	for _, word := range []string{"iptal", "İPTAL", "cancel"} {
		cancelled := f.Transition(out.Session, textEvent("u1", word), testNow)
		if !cancelled.Delete {
			t.Errorf("%q must delete the session", word)
		}
		if !strings.Contains(cancelled.Reply.Text, "iptal edildi") {
			t.Errorf("%q: expected cancel confirmation, got %q", word, cancelled.Reply.Text)
		}
	}
}

func TestTransitionCancelWithoutSession(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "iptal"), testNow)
	if out.Delete {
		t.Error("no session to delete")
	}
	if out.Reply == nil {
		t.Error("cancel should still confirm")
	}
}

func TestTransitionFullBasicFlow(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := runBasicFlow(t, f, "905551112233")

	if !out.Delete {
		t.Fatal("completed flow must delete the session")
	}
	if len(out.Effects) != 1 || out.Effects[0].Kind != models.EffectRecordCompletion {
		t.Fatalf("expected one record_completion effect, got %+v", out.Effects)
	}
	rec := out.Effects[0].Completion
	if rec == nil || rec.UserID != "905551112233" {
		t.Fatalf("completion record not attached: %+v", rec)
	}
	want := map[string]string{
		models.FieldName:  "Ahmet Yılmaz",
		models.FieldPhone: "+905551234567",
		models.FieldEmail: "ahmet@example.com",
		models.FieldCity:  "İstanbul",
	}
	for field, value := range want {
		if got := rec.Answers[field]; got != value {
			t.Errorf("answers[%s] = %q, want %q", field, got, value)
		}
	}
	if !strings.HasPrefix(rec.ID, "reg_") {
		t.Errorf("record id = %q, want reg_ prefix", rec.ID)
	}
	if !strings.Contains(out.Reply.Text, "Ahmet") {
		t.Errorf("success summary should name the user, got %q", out.Reply.Text)
	}
}

func TestTransitionBackPreservesEarlierAnswer(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "Ahmet Yılmaz"), testNow)
	if out.Session.Stage != models.StageAwaitingPhone {
		t.Fatalf("stage = %q, want %q", out.Session.Stage, models.StageAwaitingPhone)
	}

	out = f.Transition(out.Session, textEvent("u1", "geri"), testNow)
	if out.Session.Stage != models.StageAwaitingName {
		t.Errorf("stage after geri = %q, want %q", out.Session.Stage, models.StageAwaitingName)
	}
	if got := out.Session.Answer(models.FieldName); got != "Ahmet Yılmaz" {
		t.Errorf("earlier answer lost after geri: %q", got)
	}
	if out.Session.Attempts != 0 {
		t.Errorf("attempts must reset on geri, got %d", out.Session.Attempts)
	}
}

func TestTransitionBackAtFirstStage(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "geri"), testNow)
	if out.Session == nil || out.Session.Stage != models.StageAwaitingName {
		t.Error("geri at the first stage must keep the session in place")
	}
	if !strings.Contains(out.Reply.Text, "geri dönülemez") {
		t.Errorf("expected cannot-go-back message, got %q", out.Reply.Text)
	}
}

func TestTransitionStatusEmitsLookupEffect(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	for _, ev := range []models.InboundEvent{
		textEvent("u1", "durum"),
		buttonEvent("u1", models.ButtonStatus),
	} {
		out := f.Transition(nil, ev, testNow)
		if len(out.Effects) != 1 || out.Effects[0].Kind != models.EffectLookupStatus {
			t.Errorf("%v: expected a lookup_status effect, got %+v", ev.Kind, out.Effects)
		}
		if out.Reply != nil {
			t.Error("status reply is decided by the driver, not the transition")
		}
	}
}

func TestTransitionHelpKeepsStage(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "Ahmet Yılmaz"), testNow)
	stage := out.Session.Stage

	out = f.Transition(out.Session, textEvent("u1", "yardım"), testNow)
	if out.Session == nil || out.Session.Stage != stage {
		t.Error("help must not move the session")
	}
	if out.Reply == nil || out.Reply.Kind != models.ReplyButtons {
		t.Error("help reply should carry menu buttons")
	}
}

func TestTransitionRegisterButtonRestarts(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, buttonEvent("u1", models.ButtonRegister), testNow)
	if out.Session == nil || out.Session.Stage != models.StageAwaitingName {
		t.Fatal("register button must start a fresh session")
	}
}

func TestTransitionMediaOutsidePhotoStage(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	sess := out.Session

	out = f.Transition(sess, mediaEvent("u1", "m1"), testNow)
	if out.Session.Stage != models.StageAwaitingName {
		t.Error("photo outside a photo stage must not advance")
	}
	if len(out.Session.Media) != 0 {
		t.Error("photo outside a photo stage must not be stored")
	}
	if out.Session.Attempts != 0 {
		t.Error("unexpected photo is redirected, not counted as a failure")
	}
}

func TestTransitionSkipOnRequiredStage(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	out = f.Transition(out.Session, textEvent("u1", "atla"), testNow)
	if out.Session.Stage != models.StageAwaitingName {
		t.Error("atla must not advance past a required question")
	}
	if !strings.Contains(out.Reply.Text, "atlanamaz") {
		t.Errorf("expected skip-not-allowed message, got %q", out.Reply.Text)
	}
}

// runWizardToPhotos drives a wizard session up to the first photo stage.
func runWizardToPhotos(t *testing.T, f *Flow, user string) *models.Session {
	t.Helper()
	out := f.Transition(nil, textEvent(user, "merhaba"), testNow)
	for _, answer := range []string{"Ayşe Demir", "05551234567", "ayse@example.com", "Ankara", "uzayda bir kahve molası"} {
		out = f.Transition(out.Session, textEvent(user, answer), testNow)
	}
	if out.Session == nil || out.Session.Stage != models.StageAwaitingPhotoOne {
		t.Fatalf("expected photo stage, got %+v", out.Session)
	}
	return out.Session
}

func TestTransitionWizardPhotoFlow(t *testing.T) {
	f := NewFlow(models.FlowWizard, 0)
	sess := runWizardToPhotos(t, f, "u1")

	out := f.Transition(sess, mediaEvent("u1", "m1"), testNow)
	if out.Session.Stage != models.StageAwaitingPhotoTwo {
		t.Fatalf("after first photo stage = %q, want %q", out.Session.Stage, models.StageAwaitingPhotoTwo)
	}

	out = f.Transition(out.Session, mediaEvent("u1", "m2"), testNow)
	if out.Session == nil || out.Session.Stage != models.StageProcessing {
		t.Fatalf("after second photo expected processing stage, got %+v", out.Session)
	}
	if len(out.Effects) != 1 || out.Effects[0].Kind != models.EffectGenerateContent {
		t.Fatalf("expected a generate_content effect, got %+v", out.Effects)
	}
	req := out.Effects[0].Generation
	if req == nil || req.Prompt != "uzayda bir kahve molası" {
		t.Errorf("generation request prompt = %+v", req)
	}
	if len(req.Media) != 2 {
		t.Errorf("generation request media = %d refs, want 2", len(req.Media))
	}
}

func TestTransitionWizardSkipDream(t *testing.T) {
	f := NewFlow(models.FlowWizard, 0)
	out := f.Transition(nil, textEvent("u1", "merhaba"), testNow)
	for _, answer := range []string{"Ayşe Demir", "05551234567", "ayse@example.com", "Ankara"} {
		out = f.Transition(out.Session, textEvent("u1", answer), testNow)
	}
	if out.Session.Stage != models.StageAwaitingDream {
		t.Fatalf("stage = %q, want %q", out.Session.Stage, models.StageAwaitingDream)
	}

	out = f.Transition(out.Session, textEvent("u1", "atla"), testNow)
	if out.Session.Stage != models.StageAwaitingPhotoOne {
		t.Errorf("atla on the optional question should advance, stage = %q", out.Session.Stage)
	}
	if out.Session.Answer(models.FieldDream) != "" {
		t.Error("skipped question must not record an answer")
	}
}

func TestTransitionTextAtPhotoStageCountsAsFailure(t *testing.T) {
	f := NewFlow(models.FlowWizard, 0)
	sess := runWizardToPhotos(t, f, "u1")

	out := f.Transition(sess, textEvent("u1", "fotoğrafım yok"), testNow)
	if out.Session.Stage != models.StageAwaitingPhotoOne {
		t.Error("text at a photo stage must not advance")
	}
	if out.Session.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", out.Session.Attempts)
	}
	if !strings.Contains(out.Reply.Text, "fotoğraf") {
		t.Errorf("expected photo reminder, got %q", out.Reply.Text)
	}
}

func TestTransitionBackFromPhotoStageDropsLastPhoto(t *testing.T) {
	f := NewFlow(models.FlowWizard, 0)
	sess := runWizardToPhotos(t, f, "u1")
	out := f.Transition(sess, mediaEvent("u1", "m1"), testNow)

	out = f.Transition(out.Session, textEvent("u1", "geri"), testNow)
	if out.Session.Stage != models.StageAwaitingPhotoOne {
		t.Errorf("stage after geri = %q, want %q", out.Session.Stage, models.StageAwaitingPhotoOne)
	}
	if len(out.Session.Media) != 0 {
		t.Error("geri into a photo stage must re-open the photo slot")
	}
}

func TestTransitionProcessingStageHolds(t *testing.T) {
	f := NewFlow(models.FlowWizard, 0)
	sess := models.NewSession("u1", models.FlowWizard, models.StageProcessing, testNow)
	out := f.Transition(sess, textEvent("u1", "ne oldu"), testNow)
	if out.Session == nil || out.Session.Stage != models.StageProcessing {
		t.Error("processing stage must hold until generation finishes")
	}
	if len(out.Effects) != 0 {
		t.Error("no effects while processing")
	}
}

func TestTransitionUnknownStageResets(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	sess := models.NewSession("u1", models.FlowBasic, models.StageAwaitingDream, testNow)
	out := f.Transition(sess, textEvent("u1", "Ahmet"), testNow)
	if out.Session == nil || out.Session.Stage != models.StageAwaitingName {
		t.Error("a stage outside the flow script must reset the session")
	}
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	f := NewFlow(models.FlowBasic, 0)
	sess := models.NewSession("u1", models.FlowBasic, models.StageAwaitingName, testNow)
	sess.Attempts = 1

	out := f.Transition(sess, textEvent("u1", "Ahmet Yılmaz"), testNow)
	if sess.Attempts != 1 || sess.Stage != models.StageAwaitingName || len(sess.Answers) != 0 {
		t.Error("Transition must not mutate the stored session")
	}
	if out.Session.Stage != models.StageAwaitingPhone {
		t.Errorf("returned session stage = %q", out.Session.Stage)
	}
}

func TestMatchCommand(t *testing.T) {
	cases := []struct {
		text string
		want command
	}{
		{"iptal", cmdCancel},
		{"  İPTAL  ", cmdCancel},
		{"vazgeç", cmdCancel},
		{"merhaba", cmdRestart},
		{"Selam", cmdRestart},
		{"yardım", cmdHelp},
		{"YARDIM", cmdHelp},
		{"geri", cmdBack},
		{"durum", cmdStatus},
		{"atla", cmdSkip},
		{"merhaba dünya", cmdNone},
		{"", cmdNone},
		{"Ahmet", cmdNone},
	}
	for _, tc := range cases {
		if got := matchCommand(tc.text); got != tc.want {
			t.Errorf("matchCommand(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
