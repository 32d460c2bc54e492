// Package awssecretsmanager adapts AWS Secrets Manager to the Provider
// contract (pkg/provider), grounded in the teacher's
// internal/providers/aws_secretsmanager.go and aws_sts.go: a mockable
// client interface for tests, functional options for wiring a fake client,
// and the teacher's not-found/auth-denied error classification.
//
// Unlike the teacher's Resolve/Describe surface, FetchSecret here receives
// an AccessCredential per call. A CyberArkApiKey credential is rejected —
// this adapter only supports IamRole, which it honors by assuming the
// configured role via STS before calling Secrets Manager, mirroring the
// teacher's createSTSClient/AssumeRole flow.
package awssecretsmanager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/secretaccess/internal/errs"
	"github.com/systmms/secretaccess/pkg/credential"
	"github.com/systmms/secretaccess/pkg/provider"
	"github.com/systmms/secretaccess/pkg/reference"
	"github.com/systmms/secretaccess/pkg/secretval"
)

// ClientAPI is the subset of *secretsmanager.Client this adapter calls,
// narrowed so tests can substitute a fake (matches the teacher's
// SecretsManagerClientAPI).
type ClientAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// STSClientAPI is the subset of *sts.Client this adapter calls to assume a
// role before reaching Secrets Manager under an IamRole credential.
type STSClientAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// Provider implements provider.Provider against AWS Secrets Manager.
type Provider struct {
	region       string
	client       ClientAPI
	stsClient    STSClientAPI
	newSMClient  func(aws.CredentialsProvider) ClientAPI

	mu          sync.Mutex
	assumedCred map[string]assumedCredEntry // keyed by roleArn+sessionName
}

type assumedCredEntry struct {
	client  ClientAPI
	expires time.Time
}

// Option configures a Provider at construction.
type Option func(*Provider)

// WithClient injects the ClientAPI that answers every Secrets Manager call
// made after role assumption — for tests. When unset, New builds a real
// client from the default AWS config chain, and each assumed role gets its
// own real client built from the assumed credentials.
func WithClient(c ClientAPI) Option {
	return func(p *Provider) { p.client = c }
}

// WithSTSClient injects an STSClientAPI used to assume roles — for tests.
func WithSTSClient(c STSClientAPI) Option {
	return func(p *Provider) { p.stsClient = c }
}

// New constructs a Provider for the given AWS region. If no client option
// is supplied, it loads the default AWS config chain immediately.
func New(ctx context.Context, region string, opts ...Option) (*Provider, error) {
	p := &Provider{region: region, assumedCred: make(map[string]assumedCredEntry)}
	for _, opt := range opts {
		opt(p)
	}
	injected := p.client

	if p.client == nil || p.stsClient == nil {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("awssecretsmanager: load AWS config: %w", err)
		}
		if p.client == nil {
			p.client = secretsmanager.NewFromConfig(cfg)
		}
		if p.stsClient == nil {
			p.stsClient = sts.NewFromConfig(cfg)
		}
	}
	if injected != nil {
		p.newSMClient = func(aws.CredentialsProvider) ClientAPI { return injected }
		return p, nil
	}
	p.newSMClient = func(creds aws.CredentialsProvider) ClientAPI {
		cfg := aws.Config{Region: region, Credentials: creds}
		return secretsmanager.NewFromConfig(cfg)
	}
	return p, nil
}

// FetchSecret implements provider.Provider.
func (p *Provider) FetchSecret(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (*secretval.Secret, error) {
	client, err := p.clientFor(ctx, cred)
	if err != nil {
		var accessErr errs.AccessError
		if errors.As(err, &accessErr) {
			accessErr.Reference = ref
			return nil, accessErr
		}
		return nil, err
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(ref.Name())}
	if v := ref.VersionHint(); v != "" && v != reference.VersionLatest {
		input.VersionStage = aws.String(v)
	}

	out, err := client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, classifyError(ref, err)
	}

	var value []byte
	switch {
	case out.SecretString != nil:
		value = []byte(*out.SecretString)
	case out.SecretBinary != nil:
		value = out.SecretBinary
	default:
		return nil, errs.AccessError{Reference: ref, Operation: "fetch", Err: fmt.Errorf("secret has no value")}
	}

	version := "latest"
	if out.VersionId != nil {
		version = *out.VersionId
	}

	id := ref.Name()
	if out.VersionId != nil {
		id = ref.Name() + "@" + *out.VersionId
	}

	meta := secretval.NewSecretMetadata(version, time.Now(), ref.StoreType(), ref)
	return secretval.NewSecret(id, ref.Name(), value, meta), nil
}

// clientFor returns the ClientAPI to use for cred: any credential other
// than credential.IamRole is rejected (this store doesn't authenticate
// that way); credential.IamRole assumes the configured role via STS,
// caching the resulting client until the assumed credentials near expiry.
func (p *Provider) clientFor(ctx context.Context, cred credential.AccessCredential) (ClientAPI, error) {
	stsCfg, ok := cred.STSConfig()
	if !ok {
		return nil, errs.ValidationError{Field: "credential", Message: "awssecretsmanager requires an IAM_ROLE credential"}
	}

	cacheKey := stsCfg.RoleArn() + "/" + stsCfg.SessionName()

	p.mu.Lock()
	if e, ok := p.assumedCred[cacheKey]; ok && time.Now().Before(e.expires) {
		p.mu.Unlock()
		return e.client, nil
	}
	p.mu.Unlock()

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(stsCfg.RoleArn()),
		RoleSessionName: aws.String(stsCfg.SessionName()),
		DurationSeconds: aws.Int32(stsCfg.DurationSeconds()),
	}
	if stsCfg.HasExternalID() {
		input.ExternalId = aws.String(stsCfg.ExternalID())
	}

	out, err := p.stsClient.AssumeRole(ctx, input)
	if err != nil {
		return nil, errs.AccessError{Operation: "assume-role", Err: fmt.Errorf("assume role %s: %w", stsCfg.RoleArn(), err)}
	}

	assumed := awscreds.NewStaticCredentialsProvider(
		*out.Credentials.AccessKeyId, *out.Credentials.SecretAccessKey, *out.Credentials.SessionToken,
	)
	client := p.newSMClient(assumed)

	p.mu.Lock()
	p.assumedCred[cacheKey] = assumedCredEntry{client: client, expires: out.Credentials.Expiration.Add(-1 * time.Minute)}
	p.mu.Unlock()

	return client, nil
}

func classifyError(ref reference.SecretReference, err error) error {
	var notFound *smtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return errs.AccessError{Reference: ref, Operation: "fetch", Err: fmt.Errorf("secret not found: %w", err)}
	}
	msg := err.Error()
	if strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "UnauthorizedOperation") || strings.Contains(msg, "Forbidden") {
		return errs.AccessError{Reference: ref, Operation: "fetch", Err: fmt.Errorf("access denied: %w", err)}
	}
	return errs.AccessError{Reference: ref, Operation: "fetch", Err: err}
}

// SupportsStore implements provider.Provider.
func (p *Provider) SupportsStore(storeType reference.StoreType) bool {
	return storeType == reference.AwsSecretsManager
}

// SupportsChangeNotifications implements provider.Provider; AWS Secrets
// Manager has no push notification channel this adapter subscribes to.
func (p *Provider) SupportsChangeNotifications() bool { return false }

// GetLatestVersion implements provider.Provider. AWS Secrets Manager's
// DescribeSecret round-trip is no cheaper than GetSecretValue for this
// adapter's purposes, so it delegates to the no-op implementation.
func (p *Provider) GetLatestVersion(ctx context.Context, ref reference.SecretReference, cred credential.AccessCredential) (string, bool, error) {
	return provider.NoOpVersionCheck{}.GetLatestVersion(ctx, ref, cred)
}

// Capabilities implements provider.CapabilityReporter.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{SupportsVersioning: true, SupportsBinaryValues: true}
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.CapabilityReporter = (*Provider)(nil)
