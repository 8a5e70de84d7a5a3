package party

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/couchparty/server/internal/repository/party"
)

// createUser ensures a user record exists for the connection. Idempotent: an
// existing record is returned unchanged, except that a missing username may
// be filled in by a later named join.
func (s *service) createUser(ctx context.Context, connectionId, username string) (party.User, error) {
	user, err := s.partyRepo.GetUser(ctx, connectionId)
	if err == nil {
		if user.Username == "" && username != "" {
			if err := s.partyRepo.UpdateUserUsername(ctx, &party.UpdateUserUsernameParams{
				UserId:   connectionId,
				Username: username,
			}); err != nil {
				return party.User{}, fmt.Errorf("failed to update user username: %w", err)
			}
			user.Username = username
		}

		return user, nil
	}

	if !errors.Is(err, party.ErrUserNotFound) {
		return party.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.partyRepo.SetUser(ctx, &party.SetUserParams{
		UserId:   connectionId,
		Username: username,
	}); err != nil {
		return party.User{}, fmt.Errorf("failed to set user: %w", err)
	}

	return party.User{Username: username}, nil
}

// joinParty sets the user's party pointer and adds it to the party's member
// list, leaving any previous party first so the membership set and the
// reverse pointer never disagree.
func (s *service) joinParty(ctx context.Context, connectionId, partyId string) error {
	user, err := s.partyRepo.GetUser(ctx, connectionId)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.PartyId != "" && user.PartyId != partyId {
		if err := s.leaveParty(ctx, connectionId, user.PartyId); err != nil {
			return fmt.Errorf("failed to leave previous party: %w", err)
		}
	}

	if err := s.partyRepo.UpdateUserPartyId(ctx, &party.UpdateUserPartyIdParams{
		UserId:  connectionId,
		PartyId: partyId,
	}); err != nil {
		return fmt.Errorf("failed to update user party id: %w", err)
	}

	if err := s.partyRepo.AddMemberToList(ctx, &party.AddMemberToListParams{
		MemberId: connectionId,
		PartyId:  partyId,
	}); err != nil {
		return fmt.Errorf("failed to add member to list: %w", err)
	}

	return nil
}

func (s *service) leaveParty(ctx context.Context, connectionId, partyId string) error {
	if err := s.partyRepo.RemoveMemberFromList(ctx, &party.RemoveMemberFromListParams{
		MemberId: connectionId,
		PartyId:  partyId,
	}); err != nil {
		return fmt.Errorf("failed to remove member from list: %w", err)
	}

	if err := s.partyRepo.UpdateUserPartyId(ctx, &party.UpdateUserPartyIdParams{
		UserId:  connectionId,
		PartyId: "",
	}); err != nil {
		return fmt.Errorf("failed to clear user party id: %w", err)
	}

	return nil
}

// isAuthorizedToDriveParty decides whether a member's reported state may
// become the party's shared state. The current controller drives; when the
// controller is unset or has left the party, the first proposer takes over.
func (s *service) isAuthorizedToDriveParty(connectionId string, user party.User, p party.Party, memberIds []string) bool {
	if user.PartyId == "" || !slices.Contains(memberIds, connectionId) {
		return false
	}

	if p.ControllerId == "" || p.ControllerId == connectionId {
		return true
	}

	return !slices.Contains(memberIds, p.ControllerId)
}
