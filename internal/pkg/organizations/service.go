// Package organizations implements team accounts: a premium user creates one
// organization, invites members by Discord username, and the org's addons are
// accounted against the owner's storage quota.
package organizations

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/app/repository"
	"github.com/plexdev/plexaddons-api/internal/pkg/entitlements"
	"github.com/plexdev/plexaddons-api/internal/pkg/utils"
)

var (
	ErrOrgNotFound    = errors.New("organization not found")
	ErrNotMember      = errors.New("not a member of this organization")
	ErrNotAuthorized  = errors.New("not authorized for this organization action")
	ErrTierForbidden  = errors.New("organizations require a premium subscription")
	ErrAlreadyOwner   = errors.New("user already owns an organization")
	ErrNameTaken      = errors.New("organization name is already taken")
	ErrInvalidName    = errors.New("organization name cannot be slugified")
	ErrUserNotFound   = errors.New("no user with that discord username")
	ErrAlreadyMember  = errors.New("user is already a member")
	ErrMemberNotFound = errors.New("member not found")
	ErrOwnerRole      = errors.New("the owner role cannot be granted, changed, or removed")
)

// CreateInput carries the user-supplied fields of a new organization.
type CreateInput struct {
	Name        string
	Description string
}

// UpdateInput carries the updatable fields. Nil pointers leave the current
// value untouched. The slug never changes after creation.
type UpdateInput struct {
	Name        *string
	Description *string
	AvatarURL   *string
}

// Summary is an organization with its derived counters, the shape every list
// and detail response is built from.
type Summary struct {
	Organization     *models.Organization
	MemberCount      int64
	AddonCount       int64
	StorageUsedBytes int64
}

// MemberInfo joins a membership row with the member's public profile.
type MemberInfo struct {
	Member          *models.OrganizationMember
	DiscordUsername string
	DiscordAvatar   string
}

type Service struct {
	orgs  repository.OrganizationRepository
	users repository.UserRepository
	now   func() time.Time
}

func NewService(repos *repository.Repositories) *Service {
	return &Service{
		orgs:  repos.Organization,
		users: repos.User,
		now:   time.Now,
	}
}

// Create registers a new organization owned by the user and enrolls the
// owner as its first member. Premium only; one organization per owner, and
// name collisions are rejected rather than suffixed so the org slug stays
// predictable.
func (s *Service) Create(user *models.User, in CreateInput) (*models.Organization, error) {
	if user.EffectiveTier(s.now()) != entitlements.TierPremium {
		return nil, ErrTierForbidden
	}

	if _, err := s.orgs.GetByOwner(user.ID); err == nil {
		return nil, ErrAlreadyOwner
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("owner lookup failed: %w", err)
	}

	slug := utils.Slugify(in.Name)
	if slug == "" {
		return nil, ErrInvalidName
	}
	if _, err := s.orgs.GetBySlug(slug); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("slug lookup failed: %w", err)
	}

	org := &models.Organization{
		OwnerID:     user.ID,
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
	}
	if err := org.Validate(); err != nil {
		return nil, fmt.Errorf("organization validation failed: %w", err)
	}
	if err := s.orgs.Create(org); err != nil {
		return nil, fmt.Errorf("organization create failed: %w", err)
	}

	owner := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           models.ORG_ROLE_OWNER,
	}
	if err := s.orgs.AddMember(owner); err != nil {
		return nil, fmt.Errorf("owner membership create failed: %w", err)
	}
	return org, nil
}

// ListMine returns the organizations the user belongs to, with counters.
func (s *Service) ListMine(userID uint) ([]Summary, error) {
	orgs, err := s.orgs.ListByMember(userID)
	if err != nil {
		return nil, fmt.Errorf("organization list failed: %w", err)
	}

	summaries := make([]Summary, 0, len(orgs))
	for i := range orgs {
		summary, err := s.Summarize(&orgs[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// GetBySlug loads an organization by its slug without a membership check.
func (s *Service) GetBySlug(slug string) (*models.Organization, error) {
	org, err := s.orgs.GetBySlug(slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	return org, nil
}

// Detail returns the org's counters and member roster. Only members may see
// the detail view.
func (s *Service) Detail(org *models.Organization, viewerID uint) (*Summary, []MemberInfo, error) {
	if _, err := s.membership(org.ID, viewerID); err != nil {
		return nil, nil, err
	}

	summary, err := s.Summarize(org)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.orgs.ListMembers(org.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("member list failed: %w", err)
	}
	roster := make([]MemberInfo, 0, len(members))
	for i := range members {
		info := MemberInfo{Member: &members[i]}
		if user, err := s.users.GetByID(members[i].UserID); err == nil {
			info.DiscordUsername = user.DiscordUsername
			info.DiscordAvatar = user.DiscordAvatar
		}
		roster = append(roster, info)
	}
	return summary, roster, nil
}

// Summarize computes the derived counters for an organization.
func (s *Service) Summarize(org *models.Organization) (*Summary, error) {
	memberCount, err := s.orgs.CountMembers(org.ID)
	if err != nil {
		return nil, fmt.Errorf("member count failed: %w", err)
	}
	addonCount, err := s.orgs.CountAddons(org.ID)
	if err != nil {
		return nil, fmt.Errorf("addon count failed: %w", err)
	}
	storageUsed, err := s.orgs.SumVersionBytes(org.ID)
	if err != nil {
		return nil, fmt.Errorf("storage sum failed: %w", err)
	}
	return &Summary{
		Organization:     org,
		MemberCount:      memberCount,
		AddonCount:       addonCount,
		StorageUsedBytes: storageUsed,
	}, nil
}

// Update modifies org details. Requires the owner or admin role.
func (s *Service) Update(org *models.Organization, actor *models.User, in UpdateInput) (*models.Organization, error) {
	member, err := s.membership(org.ID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !member.CanManage() {
		return nil, ErrNotAuthorized
	}

	if in.Name != nil {
		org.Name = *in.Name
	}
	if in.Description != nil {
		org.Description = *in.Description
	}
	if in.AvatarURL != nil {
		org.AvatarURL = *in.AvatarURL
	}

	if err := org.Validate(); err != nil {
		return nil, fmt.Errorf("organization validation failed: %w", err)
	}
	if err := s.orgs.Update(org); err != nil {
		return nil, fmt.Errorf("organization update failed: %w", err)
	}
	return org, nil
}

// Delete removes the organization. Only the owner may delete it; every org
// addon is handed back to the owner's personal account first so published
// content survives the org.
func (s *Service) Delete(org *models.Organization, actor *models.User) error {
	if org.OwnerID != actor.ID {
		return ErrNotAuthorized
	}

	if _, err := s.orgs.TransferAddonsToUser(org.ID, org.OwnerID); err != nil {
		return fmt.Errorf("addon transfer failed: %w", err)
	}
	if err := s.orgs.Delete(org.ID); err != nil {
		return fmt.Errorf("organization delete failed: %w", err)
	}
	return nil
}

// InviteMember enrolls a user, looked up by exact Discord username. Owner
// and admins may invite, the owner role is never grantable, and only the
// owner may grant the admin role.
func (s *Service) InviteMember(org *models.Organization, inviter *models.User, discordUsername, role string) (*models.OrganizationMember, *models.User, error) {
	membership, err := s.membership(org.ID, inviter.ID)
	if err != nil {
		return nil, nil, err
	}
	if !membership.CanManage() {
		return nil, nil, ErrNotAuthorized
	}
	if role == models.ORG_ROLE_OWNER {
		return nil, nil, ErrOwnerRole
	}
	if role == models.ORG_ROLE_ADMIN && membership.Role != models.ORG_ROLE_OWNER {
		return nil, nil, ErrNotAuthorized
	}
	if role == "" {
		role = models.ORG_ROLE_MEMBER
	}

	invitee, err := s.users.GetByDiscordUsername(discordUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("invitee lookup failed: %w", err)
	}

	if _, err := s.orgs.GetMember(org.ID, invitee.ID); err == nil {
		return nil, nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("membership lookup failed: %w", err)
	}

	inviterID := inviter.ID
	member := &models.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         invitee.ID,
		Role:           role,
		InvitedByID:    &inviterID,
	}
	if err := member.Validate(); err != nil {
		return nil, nil, fmt.Errorf("membership validation failed: %w", err)
	}
	if err := s.orgs.AddMember(member); err != nil {
		return nil, nil, fmt.Errorf("membership create failed: %w", err)
	}
	return member, invitee, nil
}

// UpdateMemberRole changes a member's role. Owner only; the owner's own row
// is immutable.
func (s *Service) UpdateMemberRole(org *models.Organization, actor *models.User, memberUserID uint, role string) (*models.OrganizationMember, error) {
	if org.OwnerID != actor.ID {
		return nil, ErrNotAuthorized
	}
	if role == models.ORG_ROLE_OWNER {
		return nil, ErrOwnerRole
	}

	member, err := s.member(org.ID, memberUserID)
	if err != nil {
		return nil, err
	}
	if member.Role == models.ORG_ROLE_OWNER {
		return nil, ErrOwnerRole
	}

	member.Role = role
	if err := member.Validate(); err != nil {
		return nil, fmt.Errorf("membership validation failed: %w", err)
	}
	if err := s.orgs.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("membership update failed: %w", err)
	}
	return member, nil
}

// RemoveMember drops a member. Members may always leave on their own;
// removing someone else requires the owner or admin role. The owner can
// never be removed.
func (s *Service) RemoveMember(org *models.Organization, actor *models.User, memberUserID uint) error {
	if actor.ID != memberUserID {
		membership, err := s.membership(org.ID, actor.ID)
		if err != nil {
			return err
		}
		if !membership.CanManage() {
			return ErrNotAuthorized
		}
	}

	member, err := s.member(org.ID, memberUserID)
	if err != nil {
		return err
	}
	if member.Role == models.ORG_ROLE_OWNER {
		return ErrOwnerRole
	}

	if err := s.orgs.RemoveMember(org.ID, memberUserID); err != nil {
		return fmt.Errorf("membership delete failed: %w", err)
	}
	return nil
}

func (s *Service) membership(orgID, userID uint) (*models.OrganizationMember, error) {
	member, err := s.orgs.GetMember(orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("membership lookup failed: %w", err)
	}
	return member, nil
}

func (s *Service) member(orgID, userID uint) (*models.OrganizationMember, error) {
	member, err := s.orgs.GetMember(orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("membership lookup failed: %w", err)
	}
	return member, nil
}
