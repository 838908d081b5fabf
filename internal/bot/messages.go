package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Tamam!`
	MsgUnexpectedErr = `Beklenmeyen hata: %s`
	MsgStartPrompt   = "Merhaba! Ürün eklemek için ürününüzün fotoğrafını gönderin."
	MsgCancelled     = "Ürün ekleme iptal edildi."
	MsgUnknownInput  = "Anlaşılamadı. Ürün eklemek için bir fotoğraf gönderin."
)

// =============================================================================
// Product submission messages
// =============================================================================

const (
	MsgAskProductName        = "Ürünün adı nedir? (ör. Organik Salkım Domates)"
	MsgAskDescription        = "Ürünü kısaca açıklayın (yetiştirme şekli, miktar, tazelik vb.):"
	MsgAskCategory           = "Ürünün kategorisini seçin:"
	MsgInvalidCategory       = "Lütfen listeden bir kategori seçin."
	MsgEmptyInput            = "Boş bırakılamaz, lütfen tekrar yazın."
	MsgPhotoReplaced         = "Fotoğraf güncellendi."
	MsgImageDownloadFailed   = "Hata: fotoğraf indirilemedi"
	MsgVerifying             = "Ürününüz kontrol ediliyor..."
	MsgSubmissionInProgress  = "Önce mevcut ürünü tamamlayın veya /iptal ile vazgeçin."
	MsgProductAutoApproved   = "✅ Ürününüz onaylandı ve yayında: %s\n\n*Güven:* %%%d\n%s"
	MsgProductPendingReview  = "🕒 Ürününüz moderatör onayına gönderildi: %s\n\n*Güven:* %%%d\n%s"
	MsgProductSaveFailed     = "Hata: ürün kaydedilemedi"
	MsgNoProducts            = "Henüz ürününüz yok. Eklemek için bir fotoğraf gönderin."
	MsgMyProductsHeader      = "*Ürünleriniz:*\n"
	MsgMyProductLine         = "• %s %s (%s)\n"
	MsgStatusPending         = "🕒"
	MsgStatusApproved        = "✅"
	MsgStatusRejected        = "❌"
	MsgProductApprovedNotice = "✅ Ürününüz onaylandı ve yayında: %s"
	MsgProductRejectedNotice = "❌ Ürününüz reddedildi: %s"
)

// =============================================================================
// Moderation messages
// =============================================================================

const (
	MsgNoPendingProducts  = "Onay bekleyen ürün yok."
	MsgPendingHeader      = "*Onay bekleyen ürünler (%d):*"
	MsgPendingProduct     = "🕒 *Ürün:* %s\n*Kategori:* %s\n*Açıklama:* %s\n\n*Çiftçi:* `%d`\n*Yapay zeka:* %s, güven %%%d\n*Gerekçe:* %s\n\n*ID:* `%s`"
	MsgModerationUsage    = "Kullanım: `%s <ürün_id>`"
	MsgProductNotFound    = "Ürün bulunamadı."
	MsgProductApproved    = "✅ Onaylandı: %s"
	MsgProductRejected    = "❌ Reddedildi: %s"
	MsgPendingReminder    = "🔔 Onay bekleyen %d ürün var. Görmek için /bekleyenler"
	MsgVerdictValid       = "uygun"
	MsgVerdictInvalid     = "uygun değil"
	BtnApprove            = "✅ Onayla"
	BtnReject             = "❌ Reddet"
	callbackApprovePrefix = "onayla:"
	callbackRejectPrefix  = "reddet:"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage              = "Kullanım:\n`/admin ciftci ekle <kullanıcı_id>`\n`/admin ciftci sil <kullanıcı_id>`\n`/admin ciftci liste`"
	MsgAdminProducerAddUsage   = "Kullanım: `/admin ciftci ekle <kullanıcı_id>`"
	MsgAdminProducerRmUsage    = "Kullanım: `/admin ciftci sil <kullanıcı_id>`"
	MsgAdminInvalidID          = "Geçersiz kullanıcı ID. Bir sayı girin."
	MsgAdminProducerAdded      = "✅ Çiftçi `%d` eklendi."
	MsgAdminProducerRemoved    = "🗑 Çiftçi `%d` silindi."
	MsgAdminNoProducers        = "Kayıtlı çiftçi yok."
	MsgAdminProducersHeader    = "*Kayıtlı çiftçiler:*\n"
	MsgAdminProductNeedsReview = "🆕 Yeni ürün onay bekliyor:\n\n"
)
