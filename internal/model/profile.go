package model

// Profile 用户资料，由 /profile 接口维护
type Profile struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Exists 资料是否已创建（404 时后端视为尚未创建而非错误）
func (p *Profile) Exists() bool {
	return p != nil && (p.FirstName != "" || p.LastName != "")
}
