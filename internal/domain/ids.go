package domain

import "strings"

var (
	userIDReplacer     = strings.NewReplacer(".", "_")
	facilityIDReplacer = strings.NewReplacer(" ", "_", "-", "_")
)

// DeriveUserID 由邮箱确定性生成用户 ID：取 @ 前的本地段，"." 换成 "_"
func DeriveUserID(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	return userIDReplacer.Replace(local)
}

// DeriveFacilityID 由名称确定性生成设施 ID：小写，空格/连字符换成 "_"
func DeriveFacilityID(name string) string {
	return facilityIDReplacer.Replace(strings.ToLower(name))
}
