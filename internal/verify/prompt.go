package verify

import (
	"fmt"
	"strings"
)

const verificationPrompt = `Sen bir tarım ürünleri pazaryerinin ürün denetçisisin. Çiftçilerin yüklediği ürün ilanlarını kontrol ediyorsun.

Ürün bilgileri:
- Ürün adı: %s
- Açıklama: %s
- Kategori: %s

Görseli ve ürün bilgilerini aşağıdaki kriterlere göre değerlendir (her biri için evet/hayır):
1. Tarımsal ürün mü? Görsel gerçek bir tarım, hayvancılık veya gıda ürünü gösteriyor mu?
2. Ürün adı görselle uyumlu mu?
3. Açıklama görselle uyumlu mu?
4. Kategori ürünle uyumlu mu?
5. Görsel kalitesi yeterli mi? (net, anlaşılır, ürün görünür)
6. Yasaklı veya uygunsuz içerik var mı? (silah, ilaç, uygunsuz görsel, reklam vb.)

ÖNEMLİ: Ürün adı anlamsız, rastgele karakterlerden oluşuyor veya görseldeki ürünle uyuşmuyorsa, görsel tarımsal görünse bile ürünü REDDET.

Yanıtını yalnızca şu JSON formatında ver:
{"isValid": true veya false, "confidence": 0 ile 1 arasında bir sayı, "reason": "kısa Türkçe açıklama", "autoApproved": true veya false}

Örnek yanıt:
{"isValid": true, "confidence": 0.93, "reason": "Görsel taze domates gösteriyor, ad, açıklama ve kategori uyumlu.", "autoApproved": true}

SADECE JSON nesnesiyle yanıt ver, markdown veya başka metin ekleme.`

// BuildPrompt renders the verification instruction for a listing.
func BuildPrompt(req Request) string {
	return fmt.Sprintf(verificationPrompt,
		promptField(req.ProductName),
		promptField(req.Description),
		promptField(req.CategoryName),
	)
}

func promptField(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(belirtilmemiş)"
	}
	return s
}
