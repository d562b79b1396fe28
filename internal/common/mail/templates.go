package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
)

//go:embed templates/*.html templates/customer/*/*.html
var templateFS embed.FS

//go:embed assets/attachment.png
var attachmentPNG []byte

// Template names.
const (
	TemplateNewApplicationCreated         = "new_application_created"
	TemplateFailedHinataoAgreement        = "failed_hinatao_agreement"
	TemplateFailedHinataoForm             = "failed_hinatao_form"
	TemplateApplicationReceivedToAgency   = "application_recieved_to_agency"
	TemplateApplicationReceivedToCustomer = "application_recieved_to_customer"
	TemplateFailedNotificationEmail       = "failed_notification_email"
	TemplateReportPlaywrightUnknownError  = "report_playwright_unknown_error"
)

// customerTitles maps language code and template to the localized subject.
var customerTitles = map[string]map[string]string{
	"cn": {
		TemplateApplicationReceivedToCustomer: "【重要】请同意GTN电气燃气开通申请代理的请求",
	},
	"en": {
		TemplateApplicationReceivedToCustomer: "[Important] Request for Your Agreement to GTN Electricity and Gas Setup Service Terms and Conditions",
	},
	"ja": {
		TemplateApplicationReceivedToCustomer: "【重要】GTN電気ガスセットアップサービス申込規約同意のお願い",
	},
	"ko": {
		TemplateApplicationReceivedToCustomer: "【중요】GTN 전기 가스 셋업 서비스 신청 약관 동의를 부탁드립니다.",
	},
	"vi": {
		TemplateApplicationReceivedToCustomer: "(Quan trọng) Yêu cầu đồng ý các điều khoản sử dụng của dịch vụ lắp đặt điện và gas GTN",
	},
}

// LanguageCode maps an applicant's desired language to the template language directory.
func LanguageCode(desiredLanguage string) string {
	switch desiredLanguage {
	case "japanese":
		return "ja"
	case "vietnamese":
		return "vi"
	case "chinese", "taiwan":
		return "cn"
	case "korean":
		return "ko"
	default:
		return "en"
	}
}

// resolve returns the template path and subject for a message, applying the
// locale table when a locale is set.
func resolve(msg Message) (string, string) {
	if msg.Locale == "" {
		return msg.Template, msg.Subject
	}
	lang := LanguageCode(msg.Locale)
	subject := msg.Subject
	if title, ok := customerTitles[lang][msg.Template]; ok {
		subject = title
	}
	return path.Join("customer", lang, msg.Template), subject
}

func render(name string, data map[string]interface{}) (string, error) {
	files := []string{"templates/layout.html", "templates/" + name + ".html"}
	tmpl, err := template.New("layout.html").ParseFS(templateFS, files...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// AssetAttachment is the agreement walkthrough image sent to customers.
func AssetAttachment() Attachment {
	return Attachment{Filename: "file.png", Content: attachmentPNG}
}
