package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/plexdev/plexaddons-api/app/models"
	"github.com/plexdev/plexaddons-api/internal/pkg/organizations"
	"github.com/plexdev/plexaddons-api/internal/pkg/usercontext"
)

type organizationRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
}

type inviteMemberRequest struct {
	DiscordUsername string `json:"discord_username"`
	Role            string `json:"role"`
}

type memberRoleRequest struct {
	Role string `json:"role"`
}

func organizationResponse(s *organizations.Summary) fiber.Map {
	org := s.Organization
	return fiber.Map{
		"id":                 org.ID,
		"name":               org.Name,
		"slug":               org.Slug,
		"description":        org.Description,
		"avatar_url":         org.AvatarURL,
		"owner_id":           org.OwnerID,
		"created_at":         org.CreatedAt,
		"updated_at":         org.UpdatedAt,
		"member_count":       s.MemberCount,
		"addon_count":        s.AddonCount,
		"storage_used_bytes": s.StorageUsedBytes,
	}
}

func memberResponse(info organizations.MemberInfo) fiber.Map {
	return fiber.Map{
		"id":               info.Member.ID,
		"user_id":          info.Member.UserID,
		"role":             info.Member.Role,
		"joined_at":        info.Member.JoinedAt,
		"discord_username": info.DiscordUsername,
		"discord_avatar":   info.DiscordAvatar,
	}
}

// organizationFromSlug resolves the org route param. When it returns false
// the error response has already been written and the handler should stop.
func organizationFromSlug(c *fiber.Ctx) (*models.Organization, bool) {
	org, err := deps.Organizations.GetBySlug(c.Params("slug"))
	if err != nil {
		if errors.Is(err, organizations.ErrOrgNotFound) {
			_ = jsonError(c, fiber.StatusNotFound, "not_found", "Organization not found")
		} else {
			_ = internalError(c, "Failed to load organization")
		}
		return nil, false
	}
	return org, true
}

// HandleCreateOrganization creates a team account for the authenticated
// user. Premium subscription required.
func HandleCreateOrganization(c *fiber.Ctx) error {
	var req organizationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	in := organizations.CreateInput{Name: req.Name}
	if req.Description != nil {
		in.Description = *req.Description
	}

	org, err := deps.Organizations.Create(user, in)
	if err != nil {
		switch {
		case errors.Is(err, organizations.ErrTierForbidden):
			return jsonError(c, fiber.StatusForbidden, "tier_forbidden", "Organizations require a Premium subscription")
		case errors.Is(err, organizations.ErrAlreadyOwner):
			return jsonError(c, fiber.StatusBadRequest, "already_owner", "You already own an organization")
		case errors.Is(err, organizations.ErrNameTaken):
			return jsonError(c, fiber.StatusBadRequest, "name_taken", "Organization name is already taken")
		case errors.Is(err, organizations.ErrInvalidName):
			return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_name", "Organization name cannot be turned into a valid slug")
		default:
			return internalError(c, "Failed to create organization")
		}
	}

	summary, err := deps.Organizations.Summarize(org)
	if err != nil {
		return internalError(c, "Failed to load organization")
	}
	return c.Status(fiber.StatusCreated).JSON(organizationResponse(summary))
}

// HandleListMyOrganizations lists the organizations the user belongs to.
func HandleListMyOrganizations(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)

	summaries, err := deps.Organizations.ListMine(uc.UserID)
	if err != nil {
		return internalError(c, "Failed to list organizations")
	}

	list := make([]fiber.Map, 0, len(summaries))
	for i := range summaries {
		list = append(list, organizationResponse(&summaries[i]))
	}
	return c.JSON(fiber.Map{
		"organizations": list,
		"total":         len(list),
	})
}

// HandleGetOrganization returns org details with the member roster.
// Members only.
func HandleGetOrganization(c *fiber.Ctx) error {
	org, ok := organizationFromSlug(c)
	if !ok {
		return nil
	}

	uc := usercontext.GetUserContext(c)
	summary, roster, err := deps.Organizations.Detail(org, uc.UserID)
	if err != nil {
		if errors.Is(err, organizations.ErrNotMember) {
			return jsonError(c, fiber.StatusForbidden, "not_member", "Not a member of this organization")
		}
		return internalError(c, "Failed to load organization")
	}

	members := make([]fiber.Map, 0, len(roster))
	for _, info := range roster {
		members = append(members, memberResponse(info))
	}

	body := organizationResponse(summary)
	body["members"] = members
	if owner, err := deps.Repos.User.GetByID(org.OwnerID); err == nil {
		body["owner_username"] = owner.DiscordUsername
	}
	return c.JSON(body)
}

// HandleUpdateOrganization updates org details. Owner or org admin only.
func HandleUpdateOrganization(c *fiber.Ctx) error {
	org, ok := organizationFromSlug(c)
	if !ok {
		return nil
	}

	var req organizationRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	in := organizations.UpdateInput{
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
	}
	if req.Name != "" {
		in.Name = &req.Name
	}

	updated, err := deps.Organizations.Update(org, user, in)
	if err != nil {
		return organizationErrorResponse(c, err)
	}

	summary, err := deps.Organizations.Summarize(updated)
	if err != nil {
		return internalError(c, "Failed to load organization")
	}
	return c.JSON(organizationResponse(summary))
}

// HandleDeleteOrganization deletes the org. Owner only; org addons move to
// the owner's personal account.
func HandleDeleteOrganization(c *fiber.Ctx) error {
	org, ok := organizationFromSlug(c)
	if !ok {
		return nil
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	if err := deps.Organizations.Delete(org, user); err != nil {
		return organizationErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Organization deleted"})
}

// HandleInviteMember adds a user to the org by Discord username.
func HandleInviteMember(c *fiber.Ctx) error {
	org, ok := organizationFromSlug(c)
	if !ok {
		return nil
	}

	var req inviteMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	member, invitee, err := deps.Organizations.InviteMember(org, user, req.DiscordUsername, req.Role)
	if err != nil {
		return organizationErrorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(memberResponse(organizations.MemberInfo{
		Member:          member,
		DiscordUsername: invitee.DiscordUsername,
		DiscordAvatar:   invitee.DiscordAvatar,
	}))
}

// HandleUpdateMemberRole changes a member's role. Owner only.
func HandleUpdateMemberRole(c *fiber.Ctx) error {
	org, ok := organizationFromSlug(c)
	if !ok {
		return nil
	}

	memberUserID, err := parseIDParam(c, "user_id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid member id")
	}

	var req memberRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Malformed request body")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	member, err := deps.Organizations.UpdateMemberRole(org, user, memberUserID, req.Role)
	if err != nil {
		return organizationErrorResponse(c, err)
	}

	info := organizations.MemberInfo{Member: member}
	if memberUser, err := deps.Repos.User.GetByID(member.UserID); err == nil {
		info.DiscordUsername = memberUser.DiscordUsername
		info.DiscordAvatar = memberUser.DiscordAvatar
	}
	return c.JSON(memberResponse(info))
}

// HandleRemoveMember drops a member from the org. Members may remove
// themselves; removing others needs the owner or admin role.
func HandleRemoveMember(c *fiber.Ctx) error {
	org, ok := organizationFromSlug(c)
	if !ok {
		return nil
	}

	memberUserID, err := parseIDParam(c, "user_id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid_request", "Invalid member id")
	}

	user, err := currentUser(c)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Account not found")
	}

	if err := deps.Organizations.RemoveMember(org, user, memberUserID); err != nil {
		return organizationErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Member removed"})
}

func organizationErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, organizations.ErrNotMember):
		return jsonError(c, fiber.StatusForbidden, "not_member", "Not a member of this organization")
	case errors.Is(err, organizations.ErrNotAuthorized):
		return jsonError(c, fiber.StatusForbidden, "forbidden", "Not authorized for this organization action")
	case errors.Is(err, organizations.ErrOwnerRole):
		return jsonError(c, fiber.StatusBadRequest, "owner_role_immutable", "The owner role cannot be granted, changed, or removed")
	case errors.Is(err, organizations.ErrUserNotFound):
		return jsonError(c, fiber.StatusNotFound, "user_not_found", "No user with that Discord username")
	case errors.Is(err, organizations.ErrAlreadyMember):
		return jsonError(c, fiber.StatusBadRequest, "already_member", "User is already a member")
	case errors.Is(err, organizations.ErrMemberNotFound):
		return jsonError(c, fiber.StatusNotFound, "member_not_found", "Member not found")
	default:
		return internalError(c, "Organization operation failed")
	}
}
