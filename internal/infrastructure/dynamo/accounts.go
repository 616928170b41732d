package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-nosql/internal/domain"
)

const (
	attrAccountID    = "account_id"
	attrEmail        = "email"
	attrPasswordHash = "password_hash"
	attrVerified     = "verified"
	attrEmailCode    = "email_code"
	attrResetCode    = "reset_code"
	attrUpdatedAt    = "updated_at"
)

// accountsAPI is the subset of *dynamodb.Client the account repo calls.
type accountsAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// emailClaim is the row in the account_emails table that reserves an address.
type emailClaim struct {
	Email     string `dynamodbav:"email"`
	AccountID string `dynamodbav:"account_id"`
}

// AccountRepo stores accounts in DynamoDB. Email uniqueness is enforced by a
// second table keyed on the normalised address, written in the same transaction
// as the account row.
type AccountRepo struct {
	client      accountsAPI
	tableName   string
	emailsTable string
}

func NewAccountRepo(client accountsAPI, tableName, emailsTable string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName, emailsTable: emailsTable}
}

func (r *AccountRepo) Insert(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	claim, err := attributevalue.MarshalMap(emailClaim{Email: a.Email, AccountID: a.AccountID})
	if err != nil {
		return fmt.Errorf("marshal email claim: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.emailsTable),
				Item:                claim,
				ConditionExpression: aws.String("attribute_not_exists(email)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(account_id)"),
			}},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && conditionFailed(tce) {
			return fmt.Errorf("email %s: %w", a.Email, domain.ErrDuplicateAccount)
		}
		return err
	}
	return nil
}

func (r *AccountRepo) FindByID(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrAccountID, accountID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &a, nil
}

// FindByEmail resolves the address through the uniqueness table so a lookup right
// after signup is strongly consistent.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.emailsTable),
		Key:            strKey(attrEmail, email),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account %s: %w", email, domain.ErrNotFound)
	}
	var c emailClaim
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, fmt.Errorf("unmarshal email claim: %w", err)
	}
	return r.FindByID(ctx, c.AccountID)
}

// SaveCode sets the slot for purpose and updated_at, leaving every other
// attribute as stored. An email verification code is refused once the account
// is verified.
func (r *AccountRepo) SaveCode(ctx context.Context, accountID string, purpose domain.CodePurpose, code *domain.PendingCode) error {
	slot, err := slotAttr(purpose)
	if err != nil {
		return err
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		slot:          code,
		attrUpdatedAt: code.IssuedAt,
	})
	if err != nil {
		return err
	}
	cond := "attribute_exists(#pk)"
	ue.Names["#pk"] = attrAccountID
	if purpose == domain.PurposeEmailVerification {
		cond += " AND #verified = :unverified"
		ue.Names["#verified"] = attrVerified
		ue.Values[":unverified"] = &types.AttributeValueMemberBOOL{Value: false}
	}

	err = r.update(ctx, accountID, ue, cond)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if ccf.Item == nil {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		return fmt.Errorf("account %s: %w", accountID, domain.ErrAlreadyVerified)
	}
	return err
}

// Update writes only the fields c sets. A redemption is conditional on the slot
// still holding the hash that was consumed, so a code is redeemed at most once.
func (r *AccountRepo) Update(ctx context.Context, accountID string, c domain.AccountChange) error {
	fields := map[string]interface{}{attrUpdatedAt: c.UpdatedAt}
	if c.PasswordHash != "" {
		fields[attrPasswordHash] = c.PasswordHash
	}
	if c.MarkVerified {
		fields[attrVerified] = true
	}
	var slot string
	if c.Redeem != "" {
		var err error
		if slot, err = slotAttr(c.Redeem); err != nil {
			return err
		}
		fields[slot] = nil
	}
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	cond := "attribute_exists(#pk)"
	ue.Names["#pk"] = attrAccountID
	if slot != "" {
		cond += " AND #slot.#hash = :redeemed"
		ue.Names["#slot"] = slot
		ue.Names["#hash"] = "hash"
		if ue.Values == nil {
			ue.Values = make(map[string]types.AttributeValue, 1)
		}
		ue.Values[":redeemed"] = &types.AttributeValueMemberS{Value: c.RedeemHash}
	}

	err = r.update(ctx, accountID, ue, cond)
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if ccf.Item == nil {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		return fmt.Errorf("account %s: %s code: %w", accountID, c.Redeem, domain.ErrNoPendingCode)
	}
	return err
}

// update runs a conditional UpdateItem. On a failed condition the old item, if
// any, comes back on the error so callers can tell a missing account apart.
func (r *AccountRepo) update(ctx context.Context, accountID string, ue updateExpr, cond string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(attrAccountID, accountID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String(cond),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return err
}

func slotAttr(purpose domain.CodePurpose) (string, error) {
	switch purpose {
	case domain.PurposeEmailVerification:
		return attrEmailCode, nil
	case domain.PurposePasswordReset:
		return attrResetCode, nil
	}
	return "", fmt.Errorf("unknown code purpose %q", purpose)
}

func conditionFailed(tce *types.TransactionCanceledException) bool {
	for _, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
