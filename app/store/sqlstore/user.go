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
		provider.stores.UserStore = NewUserStore(provider)
	})
}

type UserStore struct {
	CommonFields
}

func NewUserStore(provider SqlProviderAchieve) *UserStore {
	repo := &UserStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_USER)
	repo.SetAllColumns("id", "appid", "name", "email", "avatar", "role", "salt", "password", "updated_at", "created_at")
	return repo
}

func (s *UserStore) Create(ctx context.Context, data types.User) error {
	if data.CreatedAt == 0 {
		data.CreatedAt = time.Now().Unix()
	}
	if data.UpdatedAt == 0 {
		data.UpdatedAt = data.CreatedAt
	}

	query := sq.Insert(s.GetTable()).
		Columns("id", "appid", "name", "email", "avatar", "role", "salt", "password", "updated_at", "created_at").
		Values(data.ID, data.Appid, data.Name, data.Email, data.Avatar, data.Role, data.Salt, data.Password, data.UpdatedAt, data.CreatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func (s *UserStore) GetUser(ctx context.Context, appid, id string) (*types.User, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"appid": appid, "id": id})
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var user types.User
	if err = s.GetReplica(ctx).Get(&user, queryString, args...); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, appid, email string) (*types.User, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"appid": appid, "email": email})
	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var user types.User
	if err = s.GetReplica(ctx).Get(&user, queryString, args...); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) ListUsers(ctx context.Context, opts types.ListUserOptions, page, pageSize uint64) ([]types.User, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC")
	query = applyUserOptions(query, opts)
	if page != types.NO_PAGINATION || pageSize != types.NO_PAGINATION {
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var users []types.User
	if err = s.GetReplica(ctx).Select(&users, queryString, args...); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) Total(ctx context.Context, opts types.ListUserOptions) (int64, error) {
	query := applyUserOptions(sq.Select("COUNT(*)").From(s.GetTable()), opts)
	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var total int64
	if err = s.GetReplica(ctx).Get(&total, queryString, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *UserStore) UpdateUserProfile(ctx context.Context, id, name, email string) error {
	query := sq.Update(s.GetTable()).
		Set("name", name).
		Set("email", email).
		Set("updated_at", time.Now().Unix()).
		Where(sq.Eq{"id": id})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	_, err = s.GetMaster(ctx).Exec(queryString, args...)
	return err
}

func applyUserOptions(query sq.SelectBuilder, opts types.ListUserOptions) sq.SelectBuilder {
	if len(opts.IDs) > 0 {
		query = query.Where(sq.Eq{"id": opts.IDs})
	}
	if opts.Email != "" {
		query = query.Where(sq.Eq{"email": opts.Email})
	}
	if opts.Role != "" {
		query = query.Where(sq.Eq{"role": opts.Role})
	}
	return query
}
