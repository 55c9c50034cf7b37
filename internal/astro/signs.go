package astro

// SignCount is the number of daily horoscope feeds served by the upstream site.
const SignCount = 12

// signNames follows the upstream site's iAstro index order.
var signNames = [SignCount]string{
	"牡羊座",
	"金牛座",
	"雙子座",
	"巨蟹座",
	"獅子座",
	"處女座",
	"天秤座",
	"天蠍座",
	"射手座",
	"魔羯座",
	"水瓶座",
	"雙魚座",
}

// SignName returns the Chinese name for a sign index, or an empty string
// for an out-of-range index.
func SignName(sign int) string {
	if sign < 0 || sign >= SignCount {
		return ""
	}
	return signNames[sign]
}

// ValidSign reports whether sign is a valid feed index.
func ValidSign(sign int) bool {
	return sign >= 0 && sign < SignCount
}
