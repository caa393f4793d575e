// Package token 提供了用于验证 JSON Web Tokens (JWT) 的功能。
// 令牌由平台统一认证服务签发，本服务与其共享密钥，只负责校验与解析。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责管理 JWT 的验证。
type JWTManager struct {
	secretKey []byte // secretKey 用于验证 token 签名的共享密钥
}

// CustomClaims 定义了平台签发的 JWT 中携带的自定义数据。
// CompanyID 是所有租户级资源（智能体、文档、会话）的访问边界。
type CustomClaims struct {
	UserID    uint   `json:"userId"`
	CompanyID uint   `json:"companyId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{secretKey: []byte(secret)}
}

// VerifyToken 验证给定的 token 字符串。
// 如果 token 有效，它会返回 CustomClaims 对象。
// 如果 token 无效（例如，签名不匹配或已过期），则返回错误。
func (m *JWTManager) VerifyToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// GenerateToken 使用共享密钥签发一个 token，仅用于测试与本地联调。
func (m *JWTManager) GenerateToken(userID, companyID uint, username, role string, ttl time.Duration) (string, error) {
	claims := CustomClaims{
		UserID:    userID,
		CompanyID: companyID,
		Username:  username,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}
