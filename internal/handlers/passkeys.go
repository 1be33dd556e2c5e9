package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quillnotes/backend/internal/auth"
	"github.com/quillnotes/backend/internal/middleware"
	"github.com/quillnotes/backend/internal/models"
	"github.com/quillnotes/backend/pkg/logger"
	"github.com/quillnotes/backend/pkg/utils"
)

type PasskeysHandler struct {
	DB       *gorm.DB
	WebAuthn *webauthn.WebAuthn
}

func NewPasskeysHandler(db *gorm.DB, wa *webauthn.WebAuthn) *PasskeysHandler {
	return &PasskeysHandler{DB: db, WebAuthn: wa}
}

// ceremonyUser adapts a principal or credential owner to the shape the
// ceremony library wants. The WebAuthn user handle is the raw bytes of the
// user id string, which is what registration stamped into the authenticator.
type ceremonyUser struct {
	id          string
	name        string
	displayName string
	creds       []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte {
	return []byte(u.id)
}

func (u *ceremonyUser) WebAuthnName() string {
	return u.name
}

func (u *ceremonyUser) WebAuthnDisplayName() string {
	return u.displayName
}

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return u.creds
}

func ceremonyUserForPrincipal(principal *auth.Principal, creds []models.Credential) *ceremonyUser {
	name := principal.Email
	if name == "" {
		name = principal.ID
	}
	displayName := name
	if v, ok := principal.UserMetadata["display_name"].(string); ok && v != "" {
		displayName = v
	}
	return &ceremonyUser{
		id:          principal.ID,
		name:        name,
		displayName: displayName,
		creds:       webauthnCredentials(creds),
	}
}

func ceremonyUserForOwner(user *models.User, creds []models.Credential) *ceremonyUser {
	displayName := user.Email
	if user.DisplayName != nil && *user.DisplayName != "" {
		displayName = *user.DisplayName
	}
	return &ceremonyUser{
		id:          user.ID.String(),
		name:        user.Email,
		displayName: displayName,
		creds:       webauthnCredentials(creds),
	}
}

func webauthnCredentials(records []models.Credential) []webauthn.Credential {
	creds := make([]webauthn.Credential, 0, len(records))
	for _, record := range records {
		id, err := base64.RawURLEncoding.DecodeString(record.CredentialID)
		if err != nil {
			continue
		}
		publicKey, err := base64.StdEncoding.DecodeString(record.PublicKey)
		if err != nil {
			continue
		}

		var aaguid []byte
		if parsed, err := uuid.Parse(record.AAGUID); err == nil {
			b := parsed
			aaguid = b[:]
		}

		creds = append(creds, webauthn.Credential{
			ID:              id,
			PublicKey:       publicKey,
			AttestationType: "none",
			Transport:       parseTransports(record.Transports),
			Authenticator: webauthn.Authenticator{
				AAGUID:    aaguid,
				SignCount: record.SignCount,
			},
			Flags: webauthn.CredentialFlags{
				UserVerified:   record.UserVerification == models.VerificationStatusVerified,
				BackupEligible: record.DeviceType == models.DeviceTypeMulti,
				BackupState:    record.BackupState == models.BackupStateBackedUp,
			},
		})
	}
	return creds
}

func parseTransports(raw string) []protocol.AuthenticatorTransport {
	if raw == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil
	}
	transports := make([]protocol.AuthenticatorTransport, 0, len(names))
	for _, name := range names {
		transports = append(transports, protocol.AuthenticatorTransport(name))
	}
	return transports
}

func exclusionList(records []models.Credential) []protocol.CredentialDescriptor {
	descriptors := make([]protocol.CredentialDescriptor, 0, len(records))
	for _, record := range records {
		id, err := base64.RawURLEncoding.DecodeString(record.CredentialID)
		if err != nil {
			continue
		}
		descriptors = append(descriptors, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: protocol.URLEncodedBase64(id),
			Transport:    parseTransports(record.Transports),
		})
	}
	return descriptors
}

// RegisterChallenge starts passkey registration for the admitted principal.
// The challenge is upserted by owner: a later challenge overwrites the
// earlier one, so at most one registration challenge is live per user.
func (h *PasskeysHandler) RegisterChallenge(c *fiber.Ctx) error {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing authorization header")
	}

	userID, err := uuid.Parse(principal.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user id")
	}

	var creds []models.Credential
	h.DB.Where("user_id = ?", userID).Find(&creds)

	waUser := ceremonyUserForPrincipal(principal, creds)

	options, session, err := h.WebAuthn.BeginRegistration(waUser,
		webauthn.WithConveyancePreference(protocol.PreferNoAttestation),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			ResidentKey:             protocol.ResidentKeyRequirementPreferred,
			UserVerification:        protocol.VerificationPreferred,
			AuthenticatorAttachment: protocol.Platform,
		}),
		webauthn.WithExclusions(exclusionList(creds)),
	)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to begin registration")
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to save challenge")
	}

	h.DB.Where("user_id = ?", userID).Delete(&models.Challenge{})

	challenge := models.Challenge{
		UserID:      &userID,
		Value:       session.Challenge,
		SessionData: string(sessionJSON),
	}
	if err := h.DB.Create(&challenge).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to save challenge")
	}

	return utils.Success(c, fiber.StatusOK, options)
}

// RegisterVerify completes registration. The stored challenge is consumed
// before the response is verified, success or not; when it is already gone
// the ceremony runs against empty session data and fails verification.
func (h *PasskeysHandler) RegisterVerify(c *fiber.Ctx) error {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing authorization header")
	}

	userID, err := uuid.Parse(principal.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user id")
	}

	var session webauthn.SessionData
	var challenge models.Challenge
	if err := h.DB.Where("user_id = ?", userID).First(&challenge).Error; err == nil {
		if err := json.Unmarshal([]byte(challenge.SessionData), &session); err != nil {
			session = webauthn.SessionData{}
		}
		h.DB.Delete(&models.Challenge{}, "id = ?", challenge.ID)
	}

	parsedResponse, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(c.Body()))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Verification failed")
	}

	var creds []models.Credential
	h.DB.Where("user_id = ?", userID).Find(&creds)
	waUser := ceremonyUserForPrincipal(principal, creds)

	credential, err := h.WebAuthn.CreateCredential(waUser, session, parsedResponse)
	if err != nil {
		logger.Warn("passkey_registration_rejected", map[string]interface{}{
			"user_id": principal.ID,
		})
		return utils.Error(c, fiber.StatusBadRequest, "Verification failed")
	}

	record, err := storeCredential(h.DB, userID, credential)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to save credential")
	}

	logger.Info("passkey_registered", map[string]interface{}{
		"user_id":       principal.ID,
		"credential_id": record.CredentialID,
	})

	return utils.Success(c, fiber.StatusCreated, redactedCredential(record))
}

// storeCredential persists a verified registration result. The public key is
// kept as base64 text; device/backup/verification flags map to the
// enumerated states the API exposes.
func storeCredential(db *gorm.DB, userID uuid.UUID, credential *webauthn.Credential) (*models.Credential, error) {
	var transportsJSON []byte
	if len(credential.Transport) > 0 {
		names := make([]string, len(credential.Transport))
		for i, t := range credential.Transport {
			names[i] = string(t)
		}
		transportsJSON, _ = json.Marshal(names)
	}

	deviceType := models.DeviceTypeSingle
	if credential.Flags.BackupEligible {
		deviceType = models.DeviceTypeMulti
	}
	backupState := models.BackupStateNotBackedUp
	if credential.Flags.BackupState {
		backupState = models.BackupStateBackedUp
	}
	verification := models.VerificationStatusUnverified
	if credential.Flags.UserVerified {
		verification = models.VerificationStatusVerified
	}

	record := models.Credential{
		UserID:           userID,
		FriendlyName:     "Passkey created " + time.Now().Format("Jan 2, 2006 15:04"),
		CredentialType:   "public-key",
		CredentialID:     base64.RawURLEncoding.EncodeToString(credential.ID),
		PublicKey:        base64.StdEncoding.EncodeToString(credential.PublicKey),
		AAGUID:           aaguidString(credential.Authenticator.AAGUID),
		SignCount:        credential.Authenticator.SignCount,
		Transports:       string(transportsJSON),
		UserVerification: verification,
		DeviceType:       deviceType,
		BackupState:      backupState,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func aaguidString(raw []byte) string {
	parsed, err := uuid.FromBytes(raw)
	if err != nil {
		return ""
	}
	return parsed.String()
}

// redactedCredential is the client-facing view: never the public key or the
// sign counter.
func redactedCredential(record *models.Credential) fiber.Map {
	return fiber.Map{
		"credential_id":   record.CredentialID,
		"friendly_name":   record.FriendlyName,
		"credential_type": record.CredentialType,
		"device_type":     record.DeviceType,
		"backup_state":    record.BackupState,
		"created_at":      record.CreatedAt,
	}
}

// List returns the admitted principal's registered passkeys, redacted.
func (h *PasskeysHandler) List(c *fiber.Ctx) error {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Missing authorization header")
	}

	userID, err := uuid.Parse(principal.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user id")
	}

	var creds []models.Credential
	h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&creds)

	return utils.Success(c, fiber.StatusOK, creds)
}

// LoginChallenge starts passkey authentication. No principal is required and
// the allow-list is empty: any registered authenticator may answer. The
// challenge row is ownerless, one per attempt.
func (h *PasskeysHandler) LoginChallenge(c *fiber.Ctx) error {
	options, session, err := h.WebAuthn.BeginDiscoverableLogin()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to begin authentication")
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to save challenge")
	}

	challenge := models.Challenge{
		Value:       session.Challenge,
		SessionData: string(sessionJSON),
	}
	if err := h.DB.Create(&challenge).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to save challenge")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"publicKey":   options.Response,
		"challengeId": challenge.ID,
	})
}

type loginVerifyRequest struct {
	ChallengeID string          `json:"challengeId"`
	Response    json.RawMessage `json:"response"`
}

// LoginVerify completes passkey authentication. The referenced challenge is
// deleted as soon as it is loaded, before any other check, so a challenge
// cannot be replayed across attempts even on the early 404 exits.
func (h *PasskeysHandler) LoginVerify(c *fiber.Ctx) error {
	var req loginVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	challengeID, err := parseUUID(req.ChallengeID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid challengeId")
	}

	var challenge models.Challenge
	if err := h.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Challenge not found")
	}
	h.DB.Delete(&models.Challenge{}, "id = ?", challenge.ID)

	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(challenge.SessionData), &session); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Authentication failed")
	}

	parsedResponse, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Response))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid assertion response")
	}

	credID := base64.RawURLEncoding.EncodeToString(parsedResponse.RawID)

	var record models.Credential
	if err := h.DB.First(&record, "credential_id = ?", credID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Credential not found")
	}

	var owner models.User
	if err := h.DB.First(&owner, "id = ?", record.UserID).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "Credential not found")
	}

	waUser := ceremonyUserForOwner(&owner, []models.Credential{record})

	credential, err := h.WebAuthn.ValidateDiscoverableLogin(
		func(rawID, userHandle []byte) (webauthn.User, error) {
			if len(userHandle) > 0 && string(userHandle) != waUser.id {
				return nil, auth.ErrUnauthorized
			}
			return waUser, nil
		},
		session,
		parsedResponse,
	)
	if err != nil {
		logger.Warn("passkey_authentication_rejected", map[string]interface{}{
			"credential_id": credID,
		})
		return utils.Error(c, fiber.StatusBadRequest, "Authentication failed")
	}

	if err := touchCredential(h.DB, credID, credential.Authenticator.SignCount); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to update credential")
	}

	logger.Info("passkey_login", map[string]interface{}{
		"user_id": owner.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"verified":  true,
		"principal": principalForUser(&owner),
	})
}

// touchCredential records a successful authentication: the verifier-reported
// counter replaces the stored one and last_used_at is bumped.
func touchCredential(db *gorm.DB, credentialID string, signCount uint32) error {
	now := time.Now()
	return db.Model(&models.Credential{}).
		Where("credential_id = ?", credentialID).
		Updates(map[string]interface{}{
			"sign_count":   signCount,
			"last_used_at": now,
		}).Error
}

func principalForUser(user *models.User) *auth.Principal {
	userMetadata := map[string]interface{}{}
	if user.DisplayName != nil {
		userMetadata["display_name"] = *user.DisplayName
	}
	return &auth.Principal{
		ID:           user.ID.String(),
		Email:        user.Email,
		Role:         "authenticated",
		Audience:     "authenticated",
		AppMetadata:  map[string]interface{}{},
		UserMetadata: userMetadata,
	}
}
