package sqlstore

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/teamloop/teamloop/pkg/register"
	"github.com/teamloop/teamloop/pkg/types"
)

func init() {
	register.RegisterFunc[*Provider](RegisterKey{}, func(provider *Provider) {
		provider.stores.AccessTokenStore = NewAccessTokenStore(provider)
	})
}

type AccessTokenStore struct {
	CommonFields
}

func NewAccessTokenStore(provider SqlProviderAchieve) *AccessTokenStore {
	repo := &AccessTokenStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_ACCESS_TOKEN)
	repo.SetAllColumns("id", "appid", "user_id", "version", "token", "info", "expires_at", "created_at")
	return repo
}

func (s *AccessTokenStore) Create(ctx context.Context, data types.AccessToken) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.Version == "" {
		data.Version = types.DEFAULT_ACCESS_TOKEN_VERSION
	}

	query := sq.Insert(s.GetTable()).
		Columns("appid", "user_id", "version", "token", "info", "expires_at", "created_at").
		Values(data.Appid, data.UserID, data.Version, data.Token, data.Info, data.ExpiresAt, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *AccessTokenStore) GetAccessToken(ctx context.Context, appid, token string) (*types.AccessToken, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"appid": appid, "token": token})
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var item types.AccessToken
	if err = s.GetReplica(ctx).Get(&item, queryString, args...); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *AccessTokenStore) ListAccessTokens(ctx context.Context, appid, userID string, page, pageSize uint64) ([]types.AccessToken, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).
		Where(sq.Eq{"appid": appid, "user_id": userID}).
		OrderBy("created_at DESC")
	if page != types.NO_PAGINATION || pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var items []types.AccessToken
	if err = s.GetReplica(ctx).Select(&items, queryString, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *AccessTokenStore) Delete(ctx context.Context, appid, userID, token string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"appid": appid, "user_id": userID, "token": token})
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *AccessTokenStore) ClearUserTokens(ctx context.Context, appid, userID string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"appid": appid, "user_id": userID})
	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}
