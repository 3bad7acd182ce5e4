package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mycabs/identity/internal/core/domain"
	"github.com/mycabs/identity/internal/core/ports"
)

const accountCollection = "users"

// caseInsensitive compares strings ignoring case (ICU strength 2).
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// roleOrdinals is the on-disk encoding of roles: documents store the role's
// position in this list, matching existing users collections.
var roleOrdinals = []domain.Role{domain.RoleUser, domain.RoleCompany, domain.RoleDriver, domain.RoleAdmin}

var _ ports.AccountRepository = (*AccountRepository)(nil)

// AccountRepository implements ports.AccountRepository using MongoDB.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

type mongoAccount struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"Email"`
	PasswordHash string             `bson:"PasswordHash"`
	Role         int32              `bson:"Role"`
	IsApproved   bool               `bson:"IsApproved"`
	CreatedAt    time.Time          `bson:"CreatedAt"`
}

// EnsureIndexes creates the case-insensitive unique email index and a plain
// index serving exact-match lookups.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "Email", Value: 1}},
			Options: options.Index().SetName("uniq_email_ci").SetUnique(true).SetCollation(caseInsensitive),
		},
		{
			Keys:    bson.D{{Key: "Email", Value: 1}},
			Options: options.Index().SetName("email_exact"),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

func (r *AccountRepository) FindByEmailCaseInsensitive(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"Email": email}, options.FindOne().SetCollation(caseInsensitive))
}

func (r *AccountRepository) FindByEmailExact(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"Email": email}, options.FindOne())
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid}, options.FindOne())
}

func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoAccount{
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		Role:         roleOrdinal(account.Role),
		IsApproved:   account.IsApproved,
		CreatedAt:    account.CreatedAt.UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert account: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain()
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.updateOne(ctx, id, bson.M{"PasswordHash": hash})
}

func (r *AccountRepository) UpdateEmail(ctx context.Context, id, email string) error {
	err := r.updateOne(ctx, id, bson.M{"Email": email})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrEmailAlreadyRegistered
	}
	return err
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain()
}

func (r *AccountRepository) updateOne(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (d *mongoAccount) toDomain() (*domain.Account, error) {
	role, err := roleFromOrdinal(d.Role)
	if err != nil {
		return nil, fmt.Errorf("decode account %s: %w", d.ID.Hex(), err)
	}
	return &domain.Account{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         role,
		IsApproved:   d.IsApproved,
		CreatedAt:    d.CreatedAt.UTC(),
	}, nil
}

func roleOrdinal(r domain.Role) int32 {
	for i, candidate := range roleOrdinals {
		if candidate == r {
			return int32(i)
		}
	}
	return 0
}

func roleFromOrdinal(n int32) (domain.Role, error) {
	if n < 0 || int(n) >= len(roleOrdinals) {
		return "", fmt.Errorf("stored role %d is not recognised", n)
	}
	return roleOrdinals[n], nil
}
