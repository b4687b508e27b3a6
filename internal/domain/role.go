package domain

// Role 用户角色，按等级排序：student < admin < super_admin
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// 角色等级表：所有权限判断只走这一张表，禁止散落的字符串比较
var roleRank = map[Role]int{
	RoleStudent:    1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Rank 未知角色返回 0（永远低于任何合法角色）
func (r Role) Rank() int { return roleRank[r] }

func (r Role) Valid() bool { return roleRank[r] > 0 }

// AtLeast 当前角色等级是否 >= required
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required] && roleRank[r] > 0
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
