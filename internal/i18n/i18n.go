// Package i18n holds the portal's message catalog. Keys are the English
// texts; Mongolian is the default interface language.
package i18n

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{language.Mongolian, language.English}

var matcher = language.NewMatcher(supported)

var mongolian = map[string]string{
	"Signed in successfully.":                         "Амжилттай нэвтэрлээ!",
	"Signed out.":                                     "Амжилттай гарлаа",
	"Registration complete. You can sign in now.":     "Амжилттай бүртгүүллээ. Одоо нэвтрэх боломжтой!",
	"Invalid login name or password.":                 "Нэвтрэх нэр эсвэл нууц үг буруу байна",
	"Sign-in failed, please try again.":               "Нэвтрэх үед алдаа гарлаа",
	"This login name is already registered.":          "Хэрэглэгчийн нэр бүртгэлтэй байна.",
	"Registration failed. Please try again.":          "Бүртгэл амжилтгүй боллоо. Дахин оролдоно уу.",
	"Your session has expired. Please sign in again.": "Таны нэвтрэлт дууссан байна. Дахин нэвтэрнэ үү.",
	"Please enter your login name.":                   "Хэрэглэгчийн нэр оруулна уу",
	"Please enter your password.":                     "Нууц үг оруулна уу",
	"Password must be at least 6 characters.":         "Нууц үг 6-с дээш тэмдэгт байх ёстой",
	"Passwords do not match.":                         "Нууц үг таарахгүй байна",
	"Please confirm your password.":                   "Нууц үгээ баталгаажуулна уу",
	"Please enter your current password.":             "Одоогийн нууц үгээ оруулна уу",
	"Current password is incorrect.":                  "Одоогийн нууц үг буруу байна.",
	"Password changed.":                               "Нууц үг амжилттай солигдлоо",
	"Failed to change password.":                      "Нууц үг солиход алдаа гарлаа",
	"Failed to load users.":                           "Хэрэглэгчдийг авахад алдаа гарлаа",
	"User roles updated.":                             "Хэрэглэгчийн эрх амжилттай шинэчлэгдлээ",
	"Failed to update user roles.":                    "Хэрэглэгчийн эрх шинэчлэхэд алдаа гарлаа",
	"User deleted.":                                   "Хэрэглэгч амжилттай устгагдлаа",
	"Failed to delete user.":                          "Хэрэглэгч устгахад алдаа гарлаа",
	"Failed to load permissions.":                     "Зөвшөөрлүүдийг авахад алдаа гарлаа",
	"Permission created.":                             "Зөвшөөрөл амжилттай үүслээ",
	"Permission updated.":                             "Зөвшөөрөл амжилттай шинэчлэгдлээ",
	"Failed to save permission.":                      "Зөвшөөрөл хадгалахад алдаа гарлаа",
	"Permission deleted.":                             "Зөвшөөрөл амжилттай устгагдлаа",
	"Failed to delete permission.":                    "Зөвшөөрөл устгахад алдаа гарлаа",
	"Please enter a permission name.":                 "Зөвшөөрлийн нэр оруулна уу",
	"Role permission saved.":                          "Ролийн зөвшөөрөл хадгалагдлаа",
	"Role permission removed.":                        "Ролийн зөвшөөрөл хасагдлаа",
	"Failed to save role permission.":                 "Ролийн зөвшөөрөл хадгалахад алдаа гарлаа",
	"Some role permissions could not be loaded.":      "Зарим ролийн зөвшөөрлийг ачаалж чадсангүй",
	"Failed to load user details.":                    "Хэрэглэгчийн мэдээлэл татахад алдаа гарлаа",
	"Details saved.":                                  "Мэдээлэл хадгалагдлаа",
	"Failed to save details.":                         "Мэдээлэл хадгалахад алдаа гарлаа",
	"Patient registered.":                             "Хэрэглэгч амжилттай бүртгэгдлээ",
	"Failed to register patient.":                     "Хэрэглэгч бүртгэхэд алдаа гарлаа",
	"Please enter a first name.":                      "Нэр оруулна уу",
	"Please enter a last name.":                       "Овог оруулна уу",
	"Invalid register number (example: ФБ99112233).":  "Регистрийн дугаар буруу байна (жишээ: ФБ99112233)",
	"Phone number must be 8 digits.":                  "Утасны дугаар 8 оронтой байх ёстой",
	"Please enter a university.":                      "Сургууль оруулна уу",
	"Course year must be between 1 and 7.":            "Курс 1-ээс 7 хооронд байх ёстой",
	"Please choose at least one PDF file.":            "Дор хаяж нэг PDF файл сонгоно уу",
	"Only PDF files are accepted.":                    "Зөвхөн PDF файл хүлээн авна",
	"Upload failed.":                                  "Файл байршуулахад алдаа гарлаа",
	"Files uploaded.":                                 "Файлууд амжилттай байршлаа",
	"Something went wrong, please try again.":         "Алдаа гарлаа, дахин оролдоно уу.",
	"Invalid value.":                                  "Утга буруу байна",
	"Loading...":                                      "Ачааллаж байна...",
	"Access denied":                                   "Хандах эрхгүй",
	"You do not have permission to open this page.":   "Танд энэ хуудасруу хандах эрх зөвшөөрөл байхгүй байна.",
	"Unknown role.":                                   "Тодорхойгүй роль",
	"No description":                                  "Тодорхойлолт байхгүй",
	"Active":                                          "Идэвхтэй",
	"Inactive":                                        "Идэвхгүй",
	"Dashboard":                                       "Нүүр",
	"Grant role":                                      "Роль нэмэх",
	"Revoke role":                                     "Роль хасах",
	"Role granted.":                                   "Роль нэмэгдлээ",
	"Role revoked.":                                   "Роль хасагдлаа",
	"Users":                                           "Хэрэглэгчид",
	"Permissions":                                     "Зөвшөөрлүүд",
	"Roles":                                           "Рольууд",
	"Profile":                                         "Профайл",
	"Register patient":                                "Үйлчлүүлэгч бүртгэх",
	"Examination files":                               "Файл байршуулах",
	"Sign in":                                         "Нэвтрэх",
	"Sign out":                                        "Гарах",
	"Register":                                        "Бүртгүүлэх",
	"Change password":                                 "Нууц үг солих",
	"Save":                                            "Хадгалах",
	"Delete":                                          "Устгах",
	"Edit":                                            "Засах",
	"New permission":                                  "Шинэ зөвшөөрөл",
	"Login name":                                      "Хэрэглэгчийн нэр",
	"Password":                                        "Нууц үг",
	"Confirm password":                                "Нууц үг баталгаажуулах",
	"Current password":                                "Одоогийн нууц үг",
	"New password":                                    "Шинэ нууц үг",
	"Back to dashboard":                               "Нүүр хуудас руу буцах",
	"Your permissions":                                "Таны зөвшөөрлүүд",
	"No permissions assigned.":                        "Зөвшөөрөл олгогдоогүй байна",
	"Hospital portal":                                 "Эмнэлгийн портал",
	"Session expires":                                 "Нэвтрэлт дуусах хугацаа",
	"Upload":                                          "Илгээх",
	"Name":                                            "Нэр",
	"Description":                                     "Тодорхойлолт",
	"Status":                                          "Төлөв",
	"Role":                                            "Роль",
	"Created":                                         "Үүсгэсэн",
	"Actions":                                         "Үйлдэл",
	"First name":                                      "Нэр",
	"Last name":                                       "Овог",
	"Register number":                                 "Регистрийн дугаар",
	"Phone number":                                    "Утасны дугаар",
	"University":                                      "Сургууль",
	"Course year":                                     "Курс",
	"Already registered?":                             "Бүртгэлтэй юу?",
	"No account yet?":                                 "Бүртгэлгүй юу?",
	"Assign permission":                               "Зөвшөөрөл оноох",
	"Personal details":                                "Хувийн мэдээлэл",
	"Patients registered here receive a password by phone message.": "Бүртгэснээр хэрэглэгч автоматаар үүсэж, нууц үг нь утасны дугаар руу илгээгдэнэ.",
}

func init() {
	for key, msg := range mongolian {
		_ = message.SetString(language.Mongolian, key, msg)
		_ = message.SetString(language.English, key, key)
	}
}

// Match picks the best supported language for an Accept-Language header,
// falling back to fallback when nothing matches.
func Match(acceptLanguage string, fallback language.Tag) language.Tag {
	if acceptLanguage == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return supported[idx]
}

// ParseDefault parses a configured language, defaulting to Mongolian.
func ParseDefault(value string) language.Tag {
	tag, err := language.Parse(value)
	if err != nil {
		return language.Mongolian
	}
	_, idx, confidence := matcher.Match(tag)
	if confidence == language.No {
		return language.Mongolian
	}
	return supported[idx]
}

type localeKey struct{}

type locale struct {
	tag     language.Tag
	printer *message.Printer
}

// Middleware attaches a printer chosen from the request's Accept-Language.
func Middleware(fallback language.Tag) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), Match(r.Header.Get("Accept-Language"), fallback))))
		})
	}
}

// WithLanguage returns ctx carrying a printer for tag.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, localeKey{}, locale{tag: tag, printer: message.NewPrinter(tag)})
}

// Printer returns the request printer, or a Mongolian one when none is attached.
func Printer(ctx context.Context) *message.Printer {
	if l, ok := ctx.Value(localeKey{}).(locale); ok {
		return l.printer
	}
	return message.NewPrinter(language.Mongolian)
}

// Lang returns the BCP 47 tag of the request language.
func Lang(ctx context.Context) string {
	if l, ok := ctx.Value(localeKey{}).(locale); ok {
		base, _ := l.tag.Base()
		return base.String()
	}
	return "mn"
}

// T translates key for the request in ctx.
func T(ctx context.Context, key string) string {
	return Printer(ctx).Sprintf(key)
}
