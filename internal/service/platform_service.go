package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/socialdeck/internal/models"
	"github.com/maheshrc27/socialdeck/internal/repository"
)

var ErrAccountNotFound = errors.New("social account doesn't exist")

type PlatformService interface {
	List(ctx context.Context, userID int64) ([]*models.SocialAccount, error)
	Delete(ctx context.Context, userID, accountID int64) error
	ActiveAccountsForUser(ctx context.Context, userID int64, platforms []string) ([]*models.SocialAccount, error)
}

type platformService struct {
	sa repository.SocialAccountRepository
}

func NewPlatformService(sa repository.SocialAccountRepository) PlatformService {
	return &platformService{
		sa: sa,
	}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]*models.SocialAccount, error) {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	accounts, err := s.sa.ListInfoByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting social accounts: %w", err)
	}

	return accounts, nil
}

func (s *platformService) Delete(ctx context.Context, userID, accountID int64) error {
	var err error

	if userID == 0 {
		err = errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	if accountID == 0 {
		err = errors.New("AccountID is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.sa.CheckByUserID(ctx, accountID, userID)
	if err != nil {
		return err
	}

	if !isValid {
		slog.Info(ErrAccountNotFound.Error(), "account_id", accountID)
		return ErrAccountNotFound
	}

	err = s.sa.Remove(ctx, accountID)
	if err != nil {
		return fmt.Errorf("error removing account: %w", err)
	}

	return nil
}

// ActiveAccountsForUser lists the user's active accounts on the given platforms.
// Expiry is left to the caller, which knows the instant it is publishing at.
func (s *platformService) ActiveAccountsForUser(ctx context.Context, userID int64, platforms []string) ([]*models.SocialAccount, error) {
	if len(platforms) == 0 {
		return nil, nil
	}
	return s.sa.ListActiveByUserAndPlatforms(ctx, userID, platforms)
}
