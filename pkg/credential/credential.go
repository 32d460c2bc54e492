// Package credential defines the authentication material a Provider needs
// to fetch a secret: CredentialMethod, the sum-typed AccessCredential, and
// STSAssumeRoleConfig. Every diagnostic rendering in this package elides
// secret material per the core's redaction contract.
package credential

import (
	"fmt"

	"github.com/systmms/secretaccess/internal/errs"
)

// Method is an enumerated authentication scheme.
type Method string

const (
	// CyberArkApiKey requires a non-empty opaque bearer API key payload.
	CyberArkApiKey Method = "CYBERARK_API_KEY"

	// IamRole requires an STSAssumeRoleConfig payload.
	IamRole Method = "IAM_ROLE"
)

func (m Method) String() string { return string(m) }

// STSAssumeRoleConfig is the immutable payload for the IamRole credential
// method. SessionName defaults to "SecretAccessSession" and
// DurationSeconds defaults to 900 when unset via NewSTSAssumeRoleConfig.
type STSAssumeRoleConfig struct {
	roleArn         string
	sessionName     string
	durationSeconds int32
	externalID      string
}

const (
	defaultSessionName     = "SecretAccessSession"
	defaultDurationSeconds = int32(900)
)

// NewSTSAssumeRoleConfig constructs an STSAssumeRoleConfig. roleArn must be
// non-empty. sessionName defaults to "SecretAccessSession" when empty;
// durationSeconds defaults to 900 when zero. externalID is optional.
func NewSTSAssumeRoleConfig(roleArn, sessionName string, durationSeconds int32, externalID string) (STSAssumeRoleConfig, error) {
	if roleArn == "" {
		return STSAssumeRoleConfig{}, errs.ValidationError{Field: "roleArn", Message: "must not be empty"}
	}
	if sessionName == "" {
		sessionName = defaultSessionName
	}
	if durationSeconds == 0 {
		durationSeconds = defaultDurationSeconds
	}
	return STSAssumeRoleConfig{
		roleArn:         roleArn,
		sessionName:     sessionName,
		durationSeconds: durationSeconds,
		externalID:      externalID,
	}, nil
}

func (c STSAssumeRoleConfig) RoleArn() string        { return c.roleArn }
func (c STSAssumeRoleConfig) SessionName() string    { return c.sessionName }
func (c STSAssumeRoleConfig) DurationSeconds() int32 { return c.durationSeconds }
func (c STSAssumeRoleConfig) ExternalID() string     { return c.externalID }
func (c STSAssumeRoleConfig) HasExternalID() bool    { return c.externalID != "" }

// String renders the config for diagnostics. externalId is always
// redacted; roleArn and sessionName are not secret material.
func (c STSAssumeRoleConfig) String() string {
	extID := "(none)"
	if c.HasExternalID() {
		extID = "[REDACTED]"
	}
	return fmt.Sprintf("STSAssumeRoleConfig{roleArn: %s, sessionName: %s, durationSeconds: %d, externalId: %s}",
		c.roleArn, c.sessionName, c.durationSeconds, extID)
}

// AccessCredential is the immutable (method, payload) pair a Resolver
// Aggregate holds for its whole lifetime. The payload type is constrained
// by method: CyberArkApiKey carries an opaque API key string; IamRole
// carries an STSAssumeRoleConfig. Exactly one payload field is populated,
// selected by method — this is the sum type called for by the
// specification's redesign notes.
type AccessCredential struct {
	method    Method
	apiKey    string
	stsConfig STSAssumeRoleConfig
}

// NewCyberArkApiKey constructs an AccessCredential for the CyberArkApiKey
// method. apiKey must be non-empty.
func NewCyberArkApiKey(apiKey string) (AccessCredential, error) {
	if apiKey == "" {
		return AccessCredential{}, errs.ValidationError{
			Field:   "apiKey",
			Message: "API key must not be empty for CyberArkApiKey credential",
		}
	}
	return AccessCredential{method: CyberArkApiKey, apiKey: apiKey}, nil
}

// NewIamRole constructs an AccessCredential for the IamRole method. config
// must be a valid, non-zero STSAssumeRoleConfig (i.e. constructed via
// NewSTSAssumeRoleConfig).
func NewIamRole(config STSAssumeRoleConfig) (AccessCredential, error) {
	if config.roleArn == "" {
		return AccessCredential{}, errs.ValidationError{
			Field:   "config",
			Message: "IAM_ROLE credential requires a valid STSAssumeRoleConfig",
		}
	}
	return AccessCredential{method: IamRole, stsConfig: config}, nil
}

func (c AccessCredential) Method() Method { return c.method }

// APIKey returns the opaque API key and true iff Method() == CyberArkApiKey.
func (c AccessCredential) APIKey() (string, bool) {
	if c.method != CyberArkApiKey {
		return "", false
	}
	return c.apiKey, true
}

// STSConfig returns the STS assume-role config and true iff
// Method() == IamRole.
func (c AccessCredential) STSConfig() (STSAssumeRoleConfig, bool) {
	if c.method != IamRole {
		return STSAssumeRoleConfig{}, false
	}
	return c.stsConfig, true
}

// String renders the credential for diagnostics without disclosing payload
// bytes.
func (c AccessCredential) String() string {
	switch c.method {
	case CyberArkApiKey:
		return "AccessCredential{method: CYBERARK_API_KEY, apiKey: [REDACTED]}"
	case IamRole:
		return fmt.Sprintf("AccessCredential{method: IAM_ROLE, config: %s}", c.stsConfig)
	default:
		return "AccessCredential{method: unknown}"
	}
}
