package source

import "strings"

var (
	szPrefixes = []string{"000", "001", "002", "003", "300"}
	shPrefixes = []string{"600", "601", "603", "605", "688"}
)

// DeriveSymbol 为 A 股代码加交易所前缀：
// 北交所 BJ（4xxxxx、8xxxxx），深交所 SZ，上交所 SH。
// 无法识别时原样返回，ok 为 false。
func DeriveSymbol(code string) (symbol string, ok bool) {
	if code == "" {
		return code, false
	}
	// 北交所只看首位，先判断
	if code[0] == '4' || code[0] == '8' {
		return "BJ" + code, true
	}
	for _, p := range szPrefixes {
		if strings.HasPrefix(code, p) {
			return "SZ" + code, true
		}
	}
	for _, p := range shPrefixes {
		if strings.HasPrefix(code, p) {
			return "SH" + code, true
		}
	}
	return code, false
}
