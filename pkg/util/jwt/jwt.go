package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// 签发由外部认证服务负责，这里只做校验；GenerateAccessToken 供测试与运维脚本使用

const (
	issuer             = "team_chat"
	subjectAccessToken = "access_token"
)

// ErrWrongTokenType 不是 Access Token
var ErrWrongTokenType = errors.New("token is not an access token")

// Config JWT 配置
type Config struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

var jwtConfig = &Config{AccessTokenExpiry: time.Hour}

// Init 初始化 JWT 配置
func Init(secret string, accessExpiryMinutes int) {
	jwtConfig = &Config{
		Secret:            secret,
		AccessTokenExpiry: time.Duration(accessExpiryMinutes) * time.Minute,
	}
	if jwtConfig.AccessTokenExpiry <= 0 {
		jwtConfig.AccessTokenExpiry = time.Hour
	}
}

// Claims 自定义 JWT 声明
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UID 解析 UserID 为 uuid
func (c *Claims) UID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GenerateAccessToken 生成 Access Token
func GenerateAccessToken(userID uuid.UUID, username, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID.String(),
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtConfig.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subjectAccessToken,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken 解析并验证 Token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtConfig.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// ParseAccessToken 解析 Token 并要求 Subject 为 access_token
func ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subjectAccessToken {
		return nil, ErrWrongTokenType
	}
	if _, err := claims.UID(); err != nil {
		return nil, err
	}
	return claims, nil
}
