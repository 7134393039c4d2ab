package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"crowdfund-api/internal/pkg/jwtutil"
	"crowdfund-api/internal/repository"
	"crowdfund-api/internal/testutil"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	return NewAuthService(users, AuthOptions{
		JWTSecret:         testSecret,
		AccessExpiration:  time.Minute,
		RefreshExpiration: time.Hour,
	}), users
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Username:  "alice",
		Email:     "A@X.com",
		Phone:     "01012345678",
		Password:  "correct-horse",
		FirstName: "Alice",
		LastName:  "Doe",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.User.Email != "a@x.com" {
		t.Fatalf("email not normalized: %q", result.User.Email)
	}
	if result.User.PasswordHash == "correct-horse" {
		t.Fatal("password stored in clear")
	}
	claims, err := jwtutil.ParseToken(testSecret, result.AccessToken)
	if err != nil || claims.UserID != result.User.ID {
		t.Fatalf("access token claims = %+v, %v", claims, err)
	}

	login, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.User.ID != result.User.ID {
		t.Fatalf("login user = %d", login.User.ID)
	}

	if _, err := svc.Login(ctx, LoginInput{Username: "alice", Password: "wrong-password"}); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Username: "nobody", Password: "whatever1"}); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	svc, _ := newAuthService(t)
	for _, phone := range []string{"0101234567", "11012345678", "0101234567x", "010123456789"} {
		input := validRegistration()
		input.Phone = phone
		if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("phone %q: err = %v, want ErrInvalidPhone", phone, err)
		}
	}
}

func TestRegisterUniqueness(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validRegistration()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		want   error
	}{
		{"same username", func(in *RegisterInput) { in.Email = "b@x.com"; in.Phone = "01000000000" }, ErrUsernameExists},
		{"same email", func(in *RegisterInput) { in.Username = "bob"; in.Phone = "01000000000" }, ErrEmailExists},
		{"same phone", func(in *RegisterInput) { in.Username = "bob"; in.Email = "b@x.com" }, ErrPhoneExists},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validRegistration()
			tc.mutate(&input)
			if _, err := svc.Register(ctx, input); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _ := newAuthService(t)
	input := validRegistration()
	input.Password = "short"
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("err = %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	result, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	access, err := svc.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, err := jwtutil.ParseToken(testSecret, access); err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}

	if _, err := svc.Refresh(ctx, result.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted for refresh: %v", err)
	}

	if err := svc.DeleteAccount(ctx, result.User.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := svc.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh for deleted user: %v", err)
	}
}

func TestGetUserAndDeleteAccount(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	result, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, err := svc.GetUserByID(ctx, result.User.ID)
	if err != nil || user.Username != "alice" {
		t.Fatalf("GetUserByID = %+v, %v", user, err)
	}

	if err := svc.DeleteAccount(ctx, result.User.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := svc.GetUserByID(ctx, result.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("GetUserByID after delete: %v", err)
	}
	if err := svc.DeleteAccount(ctx, result.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("second DeleteAccount: %v", err)
	}
}

func TestDeleteAccountEvictsOwnedCampaigns(t *testing.T) {
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)
	cache := newMemoryCampaignCache()
	logger, _ := test.NewNullLogger()
	campaigns := NewCampaignService(repository.NewCampaignRepository(db), users, cache, logger)
	svc := NewAuthService(users, AuthOptions{JWTSecret: testSecret, Campaigns: campaigns})
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, "owner", "01000000001")
	other := testutil.CreateUser(t, db, "other", "01000000002")
	owned := testutil.CreateCampaign(t, db, owner.ID, "owned")
	kept := testutil.CreateCampaign(t, db, other.ID, "kept")
	for _, id := range []uint{owned.ID, kept.ID} {
		if _, err := campaigns.Get(ctx, id); err != nil {
			t.Fatalf("warm cache %d: %v", id, err)
		}
	}

	if err := svc.DeleteAccount(ctx, owner.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, ok := cache.items[owned.ID]; ok {
		t.Fatal("cascaded campaign still cached")
	}
	if _, ok := cache.items[kept.ID]; !ok {
		t.Fatal("unrelated campaign evicted")
	}
	if _, err := campaigns.Get(ctx, owned.ID); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("Get after cascade: %v", err)
	}
}

func TestAssignGroupAndGrantPermission(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	result, err := svc.Register(ctx, validRegistration())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.AssignGroup(ctx, "alice", "moderators"); err != nil {
		t.Fatalf("AssignGroup: %v", err)
	}
	if err := svc.GrantPermission(ctx, "alice", "delete_campaign", ""); err != nil {
		t.Fatalf("GrantPermission: %v", err)
	}

	user, err := svc.GetUserByID(ctx, result.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if len(user.Groups) != 1 || user.Groups[0].Name != "moderators" {
		t.Fatalf("groups = %+v", user.Groups)
	}
	if len(user.Permissions) != 1 || user.Permissions[0].Name != "delete_campaign" {
		t.Fatalf("permissions = %+v", user.Permissions)
	}

	if err := svc.AssignGroup(ctx, "nobody", "moderators"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: %v", err)
	}
	if err := svc.GrantPermission(ctx, "alice", " ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank codename: %v", err)
	}
}
