// Package i18n holds the user-facing message catalog. English strings are the
// message keys; other locales register translations for them.
package i18n

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	LocaleEnglish    = "en"
	LocaleIndonesian = "id"
)

var (
	supported = []language.Tag{language.English, language.Indonesian}
	matcher   = language.NewMatcher(supported)
)

var indonesian = map[string]string{
	"Failed to upload image":                    "Gagal mengunggah gambar",
	"Failed to start generation":                "Gagal memulai pembuatan",
	"Network error while polling":               "Kesalahan jaringan saat memeriksa status",
	"Generation failed":                         "Pembuatan gagal",
	"Generation finished without a result image": "Pembuatan selesai tanpa gambar hasil",
	"Generation interrupted":                    "Pembuatan terhenti",
	"Generation timed out":                      "Waktu pembuatan habis",
	"NSFW content detected":                     "Konten tidak pantas terdeteksi",
	"Invalid credentials":                       "Kredensial tidak valid",
	"Email already registered":                  "Email sudah terdaftar",
	"Image is used by a generation":             "Gambar dipakai oleh hasil generate",
	"Unsupported image format":                  "Format gambar tidak didukung",
	"Image exceeds the %d MB limit":             "Gambar melebihi batas %d MB",
	"Invalid image":                             "Gambar tidak valid",
	"Not found":                                 "Tidak ditemukan",
	"Unauthorized":                              "Tidak diizinkan",
	"Invalid payload":                           "Payload tidak valid",
	"Internal error":                            "Kesalahan internal",
	"Generating your look...":                   "Sedang membuat tampilan Anda...",
	"Look Transformed!":                         "Tampilan Berubah!",
	"Hello, %s!":                                "Halo, %s!",
	"Upload Your Photo":                         "Unggah Foto Anda",
	"Upload Clothing":                           "Unggah Pakaian",
	"Generate":                                  "Buat",
	"Result":                                    "Hasil",
	"Too many requests":                         "Terlalu banyak permintaan",
	"Email and password are required":           "Email dan kata sandi wajib diisi",
	"Password must be at least 8 characters":    "Kata sandi minimal 8 karakter",
}

func init() {
	for key, msg := range indonesian {
		_ = message.SetString(language.Indonesian, key, msg)
	}
}

// Match picks the best supported locale for an Accept-Language style value
// such as "id-ID,id;q=0.9,en;q=0.8". Unknown or empty input yields English.
func Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return LocaleEnglish
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return LocaleEnglish
	}
	return localeOf(supported[idx])
}

// Normalize maps free-form locale strings onto a supported locale.
func Normalize(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return LocaleEnglish
	}
	return Match(locale)
}

func localeOf(tag language.Tag) string {
	base, _ := tag.Base()
	if base.String() == LocaleIndonesian {
		return LocaleIndonesian
	}
	return LocaleEnglish
}

func tagFor(locale string) language.Tag {
	if Normalize(locale) == LocaleIndonesian {
		return language.Indonesian
	}
	return language.English
}

// T translates key for locale, formatting args like fmt.Sprintf. Without
// args, text that is not a catalog key comes back verbatim, so runtime
// strings containing % are safe to pass.
func T(locale, key string, args ...any) string {
	if len(args) == 0 {
		if _, ok := indonesian[key]; !ok {
			return key
		}
	}
	return message.NewPrinter(tagFor(locale)).Sprintf(key, args...)
}

// Label renders an identifier like "clothing_photo" as "Clothing Photo".
func Label(locale, ident string) string {
	words := strings.ReplaceAll(strings.TrimSpace(ident), "_", " ")
	return cases.Title(tagFor(locale)).String(words)
}
