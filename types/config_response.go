package types

// ConfigResponse is the settings view returned by the control API. The password is never echoed.
type ConfigResponse struct {
	IPAddress   string `json:"ipAddress"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	HasPassword bool   `json:"hasPassword"`
	DeviceType  string `json:"deviceType"`
	PresetsDir  string `json:"presetsDir"`
	Repository  string `json:"presetRepository,omitempty"`
	Connected   bool   `json:"connected"`
}

// ConnectRequest is the body of POST /connect. Empty fields keep the stored settings.
type ConnectRequest struct {
	IPAddress  *string `json:"ipAddress"`
	Port       *int    `json:"port"`
	Username   *string `json:"username"`
	Password   *string `json:"password"`
	DeviceType *string `json:"deviceType"`
}

// ContentRequest is the body of PUT /config/:category.
type ContentRequest struct {
	Content string `json:"content"`
}

// ChangesRequest is the body of PATCH /config/:category.
type ChangesRequest struct {
	Changes []Change `json:"changes"`
}

// SettingsPatchRequest is the body of PATCH /settings. Nil fields are left unchanged.
type SettingsPatchRequest struct {
	ConnectRequest
	PresetsDir       *string `json:"presetsDir"`
	PresetRepository *string `json:"presetRepository"`
	CommandTimeout   *int    `json:"commandTimeout"`
}

// Apply copies the set fields onto cfg.
func (r ConnectRequest) Apply(cfg *AppConfig) {
	if r.IPAddress != nil {
		cfg.IPAddress = *r.IPAddress
	}
	if r.Port != nil {
		cfg.Port = *r.Port
	}
	if r.Username != nil {
		cfg.Username = *r.Username
	}
	if r.Password != nil {
		cfg.Password = *r.Password
	}
	if r.DeviceType != nil {
		cfg.DeviceType = string(ParseDeviceKind(*r.DeviceType))
	}
}
