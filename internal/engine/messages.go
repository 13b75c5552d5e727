package engine

import (
	"fmt"
	"strings"

	"github.com/KayitWorks/KayitFlow/internal/models"
	"github.com/KayitWorks/KayitFlow/internal/util"
	"github.com/KayitWorks/KayitFlow/internal/validate"
)

// User-facing copy. Phrasing of the recurring prompts is varied per message to
// keep the conversation from feeling canned.

var welcomeVariants = []string{
	"Merhaba! 👋 Bilgilerinizi almak için size yardımcı olacağım. Öncelikle adınızı ve soyadınızı paylaşır mısınız?",
	"Hoş geldiniz! 😊 Kayıt için birkaç soru soracağım. Önce adınızı ve soyadınızı yazabilir misiniz?",
	"Selam! 🎉 Başlayalım: adınızı ve soyadınızı öğrenebilir miyim?",
}

var phonePromptVariants = []string{
	"Teşekkürler %s! 📱 Şimdi telefon numaranızı alabilir miyim? (örn: +905551234567)",
	"%s, telefon numaranızı paylaşır mısınız? 📞 (örn: 05551234567)",
	"Harika %s! 📲 Telefon numaranızı yazabilir misiniz?",
}

var emailPromptVariants = []string{
	"%s, e-posta adresinizi paylaşabilir misiniz? 📧",
	"Teşekkürler! 📨 %s, e-posta adresinizi alabilir miyim?",
	"%s, e-posta adresinizi yazabilir misiniz? 📬",
}

var cityPromptVariants = []string{
	"%s, hangi şehirde yaşıyorsunuz? 🏙️",
	"Son olarak %s, hangi şehirde yaşıyorsunuz? 🏘️",
	"%s, şehir bilginizi alabilir miyim? 🌆",
}

var dreamPromptVariants = []string{
	"%s, şimdi eğlenceli kısım! ✨ Fotoğraflarınızdan nasıl bir görsel hayal ediyorsunuz? Kısaca anlatın. (Bu soruyu 'atla' yazarak geçebilirsiniz)",
	"%s, hayalinizdeki sahneyi bir cümleyle anlatır mısınız? 🌟 ('atla' yazarak geçebilirsiniz)",
}

const (
	photoOnePrompt = "📸 Şimdi kendi fotoğrafınızı gönderin! (Selfie veya portre fotoğrafı)"
	photoTwoPrompt = "📸 Harika! Şimdi ikinci fotoğrafı gönderin."
)

var helpText = strings.TrimSpace(`
🤖 Size nasıl yardımcı olabilirim?

• "Merhaba" - Yeni kayıt başlat
• "Durum" - Kayıt durumunuzu görün
• "Geri" - Bir önceki soruya dön
• "İptal" - Mevcut işlemi iptal et

Herhangi bir sorunuz varsa yardımcı olmaktan mutluluk duyarım! 😊`)

// menuButtons are the interactive options attached to welcome/help/nudge replies.
func menuButtons() []models.Button {
	return []models.Button{
		{ID: models.ButtonRegister, Title: "📝 Kayıt Ol"},
		{ID: models.ButtonStatus, Title: "📊 Durumum"},
		{ID: models.ButtonHelp, Title: "❓ Yardım"},
	}
}

func msgWelcome() *models.Reply {
	return models.TextReply(util.Pick(welcomeVariants))
}

func msgNudge(text string) *models.Reply {
	body := fmt.Sprintf("📨 Mesajınızı aldım: %q\n\nAşağıdaki seçeneklerden birini seçin:", text)
	if text == "" {
		body = "👋 Merhaba! Aşağıdaki seçeneklerden birini seçin:"
	}
	return models.ButtonsReply(body, menuButtons()...)
}

func msgHelp() *models.Reply {
	return models.ButtonsReply(helpText, menuButtons()...)
}

func msgCancelled() *models.Reply {
	return models.TextReply("🔄 İşlem iptal edildi. Yeni kayıt için \"Merhaba\" yazabilirsiniz.")
}

func msgCannotGoBack() *models.Reply {
	return models.TextReply("❌ İlk sorudasınız, geri dönülemez. İptal etmek için 'iptal' yazın.")
}

func msgTooManyAttempts() *models.Reply {
	return models.TextReply("❌ Çok fazla yanlış giriş yaptınız. Lütfen \"Merhaba\" yazarak tekrar başlayın.")
}

func msgTransientFailure() *models.Reply {
	return models.TextReply("❌ Kayıt sırasında bir hata oluştu. Lütfen son cevabınızı tekrar gönderin.")
}

func msgAlreadyRegistered() *models.Reply {
	return models.TextReply("⚠️ Bu WhatsApp numarası ile daha önce kayıt olmuşsunuz. Tekrar kayıt olamazsınız.")
}

func msgProcessing() *models.Reply {
	return models.TextReply("🎨 Fotoğraflarınız alındı! Görseliniz hazırlanıyor, bu birkaç dakika sürebilir... ⏳")
}

func msgGenerationFailed() *models.Reply {
	return models.TextReply("😔 Üzgünüz, görsel oluşturulamadı. Baştan başlamak için \"Merhaba\" yazabilirsiniz.")
}

func msgNotExpectingPhoto() *models.Reply {
	return models.TextReply("🤔 Şu anda bir fotoğraf beklemiyorum. Lütfen soruyu yazıyla cevaplayın.")
}

func msgSkipNotAllowed() *models.Reply {
	return models.TextReply("⚠️ Bu soru atlanamaz. Lütfen cevabınızı yazın.")
}

func msgInProgress() *models.Reply {
	return models.TextReply("⏳ Görseliniz hâlâ hazırlanıyor, lütfen bekleyin...")
}

func msgUnknownButton() *models.Reply {
	return models.TextReply("❌ Bilinmeyen seçenek. Lütfen tekrar deneyin.")
}

// msgSuccess assembles the completion summary from the collected answers.
func msgSuccess(answers map[string]string) *models.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Teşekkürler %s! Bilgileriniz başarıyla kaydedildi.\n\n📋 Bilgileriniz:\n", answers[models.FieldName])
	fmt.Fprintf(&b, "• Ad: %s\n", answers[models.FieldName])
	fmt.Fprintf(&b, "• Telefon: %s\n", answers[models.FieldPhone])
	fmt.Fprintf(&b, "• E-posta: %s\n", answers[models.FieldEmail])
	fmt.Fprintf(&b, "• Şehir: %s\n", answers[models.FieldCity])
	b.WriteString("\n✅ Artık bot hizmetlerimizi kullanabilirsiniz!\n💡 Yardım için 'yardım' yazın.")
	return models.TextReply(b.String())
}

// msgStatus reports an existing registration.
func msgStatus(rec *models.CompletionRecord) *models.Reply {
	if rec == nil {
		return models.ButtonsReply("❌ Henüz kayıt olmamışsınız.\n\n📝 Kayıt olmak için 'Merhaba' yazın.", menuButtons()...)
	}
	var b strings.Builder
	b.WriteString("✅ Kayıt durumunuz:\n\n📋 Bilgileriniz:\n")
	fmt.Fprintf(&b, "• Ad: %s\n", rec.Answers[models.FieldName])
	fmt.Fprintf(&b, "• E-posta: %s\n", rec.Answers[models.FieldEmail])
	fmt.Fprintf(&b, "• Şehir: %s\n", rec.Answers[models.FieldCity])
	fmt.Fprintf(&b, "• Kayıt Tarihi: %s\n", rec.CompletedAt.Format("02.01.2006"))
	return models.TextReply(b.String())
}

// promptFor builds the question for a step, personalized with the captured name.
func promptFor(step Step, sess *models.Session) *models.Reply {
	name := firstName(sess.Answer(models.FieldName))
	switch step.Stage {
	case models.StageAwaitingName:
		return msgWelcome()
	case models.StageAwaitingPhone:
		return models.TextReply(fmt.Sprintf(util.Pick(phonePromptVariants), name))
	case models.StageAwaitingEmail:
		return models.TextReply(fmt.Sprintf(util.Pick(emailPromptVariants), name))
	case models.StageAwaitingCity:
		return models.TextReply(fmt.Sprintf(util.Pick(cityPromptVariants), name))
	case models.StageAwaitingDream:
		return models.TextReply(fmt.Sprintf(util.Pick(dreamPromptVariants), name))
	case models.StageAwaitingPhotoOne:
		return models.TextReply(photoOnePrompt)
	case models.StageAwaitingPhotoTwo:
		return models.TextReply(photoTwoPrompt)
	default:
		return msgWelcome()
	}
}

// corrective builds the field-specific error prompt, warning when one attempt remains.
func corrective(step Step, err error, attempts, maxAttempts int) *models.Reply {
	var b strings.Builder
	b.WriteString("❌ ")
	b.WriteString(correctiveText(step, err))
	remaining := maxAttempts - attempts
	if remaining == 1 {
		b.WriteString("\n\n⚠️ Son bir deneme hakkınız kaldı. Lütfen dikkatli olun.")
	} else {
		fmt.Fprintf(&b, "\n\n⚠️ %d deneme hakkınız kaldı.", remaining)
	}
	return models.TextReply(b.String())
}

func correctiveText(step Step, err error) string {
	if step.Photos > 0 {
		return "Bu adımda bir fotoğraf bekliyorum. Lütfen fotoğraf gönderin. 📸"
	}
	fe, ok := err.(*validate.FieldError)
	if !ok {
		return "Lütfen geçerli bir değer giriniz."
	}
	switch step.Field {
	case models.FieldName:
		switch fe.Kind {
		case validate.KindPattern:
			return "Adınızda sadece harf kullanabilirsiniz. Örnek: Ahmet Yılmaz"
		case validate.KindTooShort, validate.KindEmpty:
			return "Adınız çok kısa görünüyor. Tam adınızı yazabilir misiniz?"
		case validate.KindTooLong:
			return "Adınız çok uzun görünüyor. Kısaltabilir misiniz?"
		}
	case models.FieldPhone:
		return "Telefon numaranızı +90 ile başlayarak yazabilir misiniz? Örnek: +905551234567"
	case models.FieldEmail:
		return "E-posta adresinizi doğru formatta yazabilir misiniz? Örnek: ornek@email.com"
	case models.FieldCity:
		switch fe.Kind {
		case validate.KindPattern:
			return "Şehir adını sadece harflerle yazabilir misiniz? Örnek: İstanbul"
		case validate.KindTooLong:
			return "Şehir adı çok uzun görünüyor. Kısaltabilir misiniz?"
		default:
			return "Şehir adı çok kısa görünüyor. Tam şehir adını yazabilir misiniz?"
		}
	case models.FieldDream:
		return "Hayalinizi kısaca yazabilir misiniz? (Geçmek için 'atla' yazın)"
	}
	return "Lütfen geçerli bir değer giriniz."
}

// generationCaption is the message accompanying the generated image.
func generationCaption(sess *models.Session) string {
	return fmt.Sprintf("✨ İşte görseliniz %s! Umarız beğenirsiniz. 🎨", firstName(sess.Answer(models.FieldName)))
}

// firstName returns the first word of a full name for personalization.
func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}
