package enrich

// tagCategory groups the keyword variants that imply one tag. Order matters:
// AutoTag emits tags in this order and truncates at five.
type tagCategory struct {
	Tag      string
	Keywords []string
}

var tagCategories = []tagCategory{
	{Tag: "iş", Keywords: []string{"iş", "çalışma", "ofis", "toplantı", "proje", "müşteri"}},
	{Tag: "aile", Keywords: []string{"aile", "anne", "baba", "kardeş", "çocuk", "eş"}},
	{Tag: "arkadaş", Keywords: []string{"arkadaş", "dostlar", "buluşma", "parti"}},
	{Tag: "sağlık", Keywords: []string{"sağlık", "doktor", "hastane", "spor", "egzersiz", "koşu"}},
	{Tag: "eğlence", Keywords: []string{"film", "dizi", "müzik", "konser", "oyun"}},
	{Tag: "yemek", Keywords: []string{"yemek", "restoran", "kahve", "kahvaltı", "akşam yemeği"}},
	{Tag: "seyahat", Keywords: []string{"seyahat", "tatil", "gezi", "uçuş", "otel"}},
	{Tag: "stres", Keywords: []string{"stres", "endişe", "kaygı", "gergin", "yorgun"}},
	{Tag: "başarı", Keywords: []string{"başarı", "kazandım", "tamamladım", "bitirdim"}},
	{Tag: "öğrenme", Keywords: []string{"öğrendim", "kurs", "kitap", "okudum", "araştırma"}},
}

var positiveWords = []string{
	"mutlu", "harika", "güzel", "mükemmel", "sevindim", "başardım",
	"huzurlu", "neşeli", "keyifli", "eğlenceli", "minnettar",
}

var negativeWords = []string{
	"üzgün", "kötü", "sinirli", "yorgun", "stresli", "endişeli",
	"hayal kırıklığı", "mutsuz", "sıkıcı", "berbat", "korkunç",
}
