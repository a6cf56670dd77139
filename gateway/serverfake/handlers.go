package serverfake

import (
	"net/http"
	"strings"

	"github.com/pquerna/otp/totp"
)

type userJSON struct {
	ID     int64  `json:"id"`
	Nombre string `json:"nombre"`
	Correo string `json:"correo"`
}

// startSession issues a token pair for a. Callers hold s.mu.
func (s *Server) startSession(a *Account) map[string]any {
	access, refresh := s.issue("A"), s.issue("R")
	owner := strings.ToLower(a.Correo)
	s.accessTokens[access] = owner
	s.refreshToken[refresh] = owner
	return map[string]any{
		"accessToken":  access,
		"refreshToken": refresh,
		"user":         userJSON{ID: a.ID, Nombre: a.Nombre, Correo: a.Correo},
	}
}

// proven answers a successful first factor: a session or a 2FA challenge. Callers hold s.mu.
func (s *Server) proven(a *Account) map[string]any {
	if a.twoFactorEnabled() {
		temp := s.issue("T")
		s.tempTokens[temp] = strings.ToLower(a.Correo)
		return map[string]any{"requires2FA": true, "tempToken": temp}
	}
	return s.startSession(a)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Correo     string `json:"correo"`
		Contrasena string `json:"contrasena"`
	}
	if !decode(r, &req) {
		writeMensaje(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[strings.ToLower(req.Correo)]
	if !ok || !a.checkPassword(req.Contrasena) {
		writeMensaje(w, http.StatusUnauthorized, "Credenciales inválidas.")
		return
	}
	writeJSON(w, http.StatusOK, s.proven(a))
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nombre     string `json:"nombre"`
		Correo     string `json:"correo"`
		Contrasena string `json:"contrasena"`
	}
	if !decode(r, &req) || req.Correo == "" || req.Contrasena == "" {
		writeMensaje(w, http.StatusBadRequest, "Faltan datos obligatorios.")
		return
	}

	if _, exists := s.Account(req.Correo); exists {
		writeMensaje(w, http.StatusConflict, "El correo ya está registrado.")
		return
	}
	s.AddAccount(Account{Nombre: req.Nombre, Correo: req.Correo, Password: req.Contrasena})
	writeMensaje(w, http.StatusCreated, "Usuario registrado exitosamente.")
}

func (s *Server) magicLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Correo string `json:"correo"`
	}
	if !decode(r, &req) {
		writeMensaje(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[strings.ToLower(req.Correo)]
	if !ok {
		writeMensaje(w, http.StatusNotFound, "Usuario no encontrado.")
		return
	}
	s.magicTokens[s.issue("M")] = strings.ToLower(a.Correo)
	writeMensaje(w, http.StatusOK, "Enlace enviado.")
}

func (s *Server) magicVerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(r, &req) {
		writeMensaje(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.magicTokens[req.Token]
	if !ok {
		writeMensaje(w, http.StatusBadRequest, "El enlace es inválido o ya fue utilizado.")
		return
	}
	delete(s.magicTokens, req.Token)
	writeJSON(w, http.StatusOK, s.proven(s.accounts[owner]))
}

func (s *Server) twoFactorHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TempToken string `json:"tempToken"`
		OTPCode   string `json:"otpCode"`
	}
	if !decode(r, &req) {
		writeMensaje(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.tempTokens[req.TempToken]
	if !ok {
		writeMensaje(w, http.StatusUnauthorized, "Sesión temporal expirada.")
		return
	}
	a := s.accounts[owner]
	if !s.validCode(a, req.OTPCode) {
		writeMensaje(w, http.StatusUnauthorized, "Código 2FA incorrecto.")
		return
	}
	delete(s.tempTokens, req.TempToken)
	writeJSON(w, http.StatusOK, s.startSession(a))
}

func (s *Server) validCode(a *Account, code string) bool {
	if a.FixedOTP != "" {
		return code == a.FixedOTP
	}
	valid, err := totp.ValidateCustom(code, a.TOTPSecret, s.Now(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	return err == nil && valid
}

func (s *Server) forgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Correo string `json:"correo"`
	}
	if !decode(r, &req) || !strings.Contains(req.Correo, "@") {
		writeMensaje(w, http.StatusBadRequest, "Correo inválido.")
		return
	}

	s.mu.Lock()
	if a, ok := s.accounts[strings.ToLower(req.Correo)]; ok {
		s.resetTokens[s.issue("P")] = strings.ToLower(a.Correo)
	}
	s.mu.Unlock()

	// Same answer whether or not the account exists
	writeMensaje(w, http.StatusOK, "Si el correo existe, recibirás un enlace.")
}

func (s *Server) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		NuevaContrasena string `json:"nuevaContrasena"`
	}
	if !decode(r, &req) {
		writeMensaje(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.resetTokens[req.Token]
	if !ok {
		writeMensaje(w, http.StatusBadRequest, "Token inválido o expirado.")
		return
	}
	delete(s.resetTokens, req.Token)
	s.accounts[owner].setPassword(req.NuevaContrasena)
	writeMensaje(w, http.StatusOK, "Contraseña actualizada.")
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(r, &req) {
		writeMensaje(w, http.StatusBadRequest, "Solicitud inválida.")
		return
	}

	s.mu.Lock()
	delete(s.refreshToken, req.RefreshToken)
	s.mu.Unlock()
	writeMensaje(w, http.StatusOK, "Sesión cerrada.")
}

// bearerOwner returns the account behind the request's bearer token. Callers hold s.mu.
func (s *Server) bearerOwner(r *http.Request) (*Account, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, false
	}
	owner, ok := s.accessTokens[token]
	if !ok {
		return nil, false
	}
	return s.accounts[owner], true
}

func (s *Server) revokeAllHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.bearerOwner(r)
	if !ok {
		writeMensaje(w, http.StatusUnauthorized, "Token inválido.")
		return
	}

	owner := strings.ToLower(a.Correo)
	for tok, o := range s.refreshToken {
		if o == owner {
			delete(s.refreshToken, tok)
		}
	}
	for tok, o := range s.accessTokens {
		if o == owner {
			delete(s.accessTokens, tok)
		}
	}
	writeMensaje(w, http.StatusOK, "Todas las sesiones fueron cerradas.")
}

func (s *Server) twoFactorSetupHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.bearerOwner(r)
	if !ok {
		writeMensaje(w, http.StatusUnauthorized, "Token inválido.")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{Issuer: "Moda Sarita", AccountName: a.Correo})
	if err != nil {
		writeMensaje(w, http.StatusInternalServerError, "Error al generar el secreto.")
		return
	}
	a.pendingSecret = key.Secret()
	writeJSON(w, http.StatusOK, map[string]string{"otpauth_url": key.URL()})
}

func (s *Server) twoFactorEnableHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(r, &req) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Solicitud inválida."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.bearerOwner(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token inválido."})
		return
	}

	valid, err := totp.ValidateCustom(req.Token, a.pendingSecret, s.Now(), totp.ValidateOpts{Period: 30, Skew: 1, Digits: 6})
	if a.pendingSecret == "" || err != nil || !valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Código inválido."})
		return
	}
	a.TOTPSecret, a.pendingSecret = a.pendingSecret, ""
	writeJSON(w, http.StatusOK, map[string]string{"message": "2FA activado correctamente."})
}
