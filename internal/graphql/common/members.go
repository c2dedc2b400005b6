package common

import (
	"context"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// VisibleMembers lists the members of account, optionally restricted to role. Incognito
// profiles are left out unless the caller administers the account with the incognito scope.
func VisibleMembers(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective, role models.MemberRole) ([]*models.Member, error) {
	members, err := rc.Loaders().Member.ByCollectiveID.Load(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	seeIncognito, err := permissions.CanSeeIncognitoMembers(ctx, rc, account)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.MemberCollectiveID)
	}
	profiles, errs := rc.Loaders().Collective.ByID.LoadMany(ctx, ids)

	result := make([]*models.Member, 0, len(members))
	for i, m := range members {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if role != "" && m.Role != role {
			continue
		}
		if profiles[i] == nil || (profiles[i].IsIncognito && !seeIncognito) {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}
