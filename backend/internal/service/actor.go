package service

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"valve-vault/backend/config"
)

// Actor 操作人，由外部身份服务提供，显式传入每个业务调用
type Actor struct {
	ID   string
	Name string
	Role string
}

// Label 审计中展示的操作人名称
func (a Actor) Label() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// SystemActor 后台任务（如过期认领回收）使用的操作人
var SystemActor = Actor{ID: "system", Name: "system", Role: "system"}

// ── 权限 ──

// 需要授权的动作
const (
	ActionApprove      = "approve"
	ActionReject       = "reject"
	ActionOverride     = "override"
	ActionAdjust       = "adjust"
	ActionDelete       = "delete"
	ActionForceRelease = "force_release"
	ActionCatalog      = "catalog"
)

var allActions = []string{
	ActionApprove, ActionReject, ActionOverride, ActionAdjust,
	ActionDelete, ActionForceRelease, ActionCatalog,
}

// AllowedActions 返回 actor 可执行的全部授权动作（前端据此显示按钮）
func AllowedActions(perms PermissionResolver, actor Actor) []string {
	out := make([]string, 0, len(allActions))
	for _, a := range allActions {
		if perms.Can(actor, a) {
			out = append(out, a)
		}
	}
	return out
}

// PermissionResolver 回答 "actor 能否执行 action"
type PermissionResolver interface {
	Can(actor Actor, action string) bool
}

const rbacModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.act == p.act
`

type casbinResolver struct {
	enforcer *casbin.Enforcer
}

// NewPermissionResolver 根据配置的 动作 → 角色 列表构建 casbin 策略
func NewPermissionResolver(cfg *config.PermissionsConfig) (PermissionResolver, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("加载权限模型失败: %w", err)
	}
	enf, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("初始化权限引擎失败: %w", err)
	}

	policies := map[string][]string{
		ActionApprove:      cfg.Approve,
		ActionReject:       cfg.Reject,
		ActionOverride:     cfg.Override,
		ActionAdjust:       cfg.Adjust,
		ActionDelete:       cfg.Delete,
		ActionForceRelease: cfg.ForceRelease,
		ActionCatalog:      cfg.Catalog,
	}
	for action, roles := range policies {
		for _, role := range roles {
			if _, err := enf.AddPolicy(role, action); err != nil {
				return nil, fmt.Errorf("写入权限策略失败 %s/%s: %w", role, action, err)
			}
		}
	}

	return &casbinResolver{enforcer: enf}, nil
}

func (r *casbinResolver) Can(actor Actor, action string) bool {
	if actor.Role == "" {
		return false
	}
	ok, err := r.enforcer.Enforce(actor.Role, action)
	return err == nil && ok
}
