package qr

import (
	"errors"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// Prefix 签入码的固定前缀，扫码端按它识别本系统的码
const Prefix = "QLESS_CHECKIN:"

var ErrInvalidFormat = errors.New("invalid QR code format")

// Encode 设施 ID → 不透明签入令牌
func Encode(facilityID string) string { return Prefix + facilityID }

// Decode 严格要求字面前缀，余下部分即设施 ID
func Decode(token string) (string, error) {
	rest, ok := strings.CutPrefix(token, Prefix)
	if !ok || rest == "" {
		return "", ErrInvalidFormat
	}
	return rest, nil
}

// PNG 把签入令牌渲染成 QR 图片（尺寸为像素边长）
func PNG(facilityID string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(Encode(facilityID), qrcode.Medium, size)
}
