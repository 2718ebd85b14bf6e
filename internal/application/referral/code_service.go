package referral

import (
	"context"
	"errors"
	"time"

	"github.com/partnerly/backend/internal/domain/referral"
	"github.com/partnerly/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CodeDirectory resolves referral codes to their owning partner.
// Resolution applies the full usability check: code exists, is active,
// not expired, under its usage limit, and the owning partner is active.
// Checks run in that order and short-circuit on the first failure.
type CodeDirectory struct {
	codeRepo    referral.ReferralCodeRepository
	partnerRepo referral.PartnerRepository
	logger      *zap.Logger
}

// CodeDirectoryConfig contains configuration for CodeDirectory
type CodeDirectoryConfig struct {
	CodeRepo    referral.ReferralCodeRepository
	PartnerRepo referral.PartnerRepository
	Logger      *zap.Logger
}

// NewCodeDirectory creates a new CodeDirectory
func NewCodeDirectory(cfg CodeDirectoryConfig) *CodeDirectory {
	return &CodeDirectory{
		codeRepo:    cfg.CodeRepo,
		partnerRepo: cfg.PartnerRepo,
		logger:      cfg.Logger,
	}
}

// Resolve looks up a usable code and its active partner. On rejection
// it returns one of the referral.ErrCode* / ErrPartnerNotActive errors;
// callers distinguish rejection from infrastructure failure with
// IsRejection.
func (d *CodeDirectory) Resolve(ctx context.Context, code string) (*referral.ReferralCode, *referral.Partner, error) {
	return resolveCode(ctx, d.codeRepo, d.partnerRepo, code)
}

// resolveCode is the shared resolution path. The correlation service
// calls it with transaction-scoped repositories so the usability check
// and the subsequent writes see the same snapshot.
func resolveCode(
	ctx context.Context,
	codeRepo referral.ReferralCodeRepository,
	partnerRepo referral.PartnerRepository,
	code string,
) (*referral.ReferralCode, *referral.Partner, error) {
	rc, err := codeRepo.FindByCode(ctx, referral.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, referral.ErrCodeNotFound
		}
		return nil, nil, err
	}

	if err := rc.CheckUsable(time.Now()); err != nil {
		return nil, nil, err
	}

	partner, err := partnerRepo.FindByID(ctx, rc.PartnerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, referral.ErrPartnerNotActive
		}
		return nil, nil, err
	}
	if !partner.IsActive() {
		return nil, nil, referral.ErrPartnerNotActive
	}

	return rc, partner, nil
}

// IsRejection reports whether an error from Resolve is a business
// rejection of the code rather than an infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, referral.ErrCodeNotFound) ||
		errors.Is(err, referral.ErrCodeInactive) ||
		errors.Is(err, referral.ErrCodeExpired) ||
		errors.Is(err, referral.ErrCodeUsageLimitReached) ||
		errors.Is(err, referral.ErrPartnerNotActive)
}

// PartnerInfo is the public projection of a partner returned by code
// validation.
type PartnerInfo struct {
	PartnerID string `json:"partner_id"`
	Name      string `json:"name"`
}

// CodeValidationResult is the outcome of a code validation request
type CodeValidationResult struct {
	Valid   bool         `json:"valid"`
	Code    string       `json:"code"`
	Reason  string       `json:"reason,omitempty"`
	Partner *PartnerInfo `json:"partner,omitempty"`
}

// Validate checks a code on behalf of a checkout page. A rejected code
// yields a result with Valid=false and a machine-readable reason, not
// an error; errors are reserved for infrastructure failures.
func (d *CodeDirectory) Validate(ctx context.Context, code string) (*CodeValidationResult, error) {
	normalized := referral.NormalizeCode(code)
	result := &CodeValidationResult{Code: normalized}

	_, partner, err := d.Resolve(ctx, normalized)
	if err != nil {
		if IsRejection(err) {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				result.Reason = domainErr.Code
			}
			d.logger.Debug("Referral code rejected",
				zap.String("code", normalized),
				zap.String("reason", result.Reason))
			return result, nil
		}
		return nil, err
	}

	result.Valid = true
	result.Partner = &PartnerInfo{
		PartnerID: partner.ID.String(),
		Name:      partner.Name,
	}
	return result, nil
}
