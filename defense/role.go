package defense

import (
	"fmt"
	"strings"
)

// Role 是姓名字段在卡片上的角色，决定其标签前缀。
type Role uint8

const (
	RoleStudent Role = iota
	RoleAdvisor
	RoleCoAdvisor
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "aluno"
	case RoleAdvisor:
		return "orientador"
	case RoleCoAdvisor:
		return "coorientador"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Label 返回带角色前缀的姓名，学生姓名不带前缀。
func (r Role) Label(name string) string {
	switch r {
	case RoleAdvisor:
		return "Orientador(a): " + name
	case RoleCoAdvisor:
		return "Coorientador(a): " + name
	default:
		return name
	}
}

// ParseRole 接受葡语或英语写法。
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aluno", "aluna", "student":
		return RoleStudent, nil
	case "orientador", "orientadora", "advisor":
		return RoleAdvisor, nil
	case "coorientador", "coorientadora", "co-advisor", "coadvisor":
		return RoleCoAdvisor, nil
	default:
		return RoleStudent, fmt.Errorf("未知的姓名角色 %q", s)
	}
}

// Modality 是答辩形式。
type Modality uint8

const (
	InPerson Modality = iota
	Online
	Hybrid
)

// String 返回卡片上显示的葡语标题。
func (m Modality) String() string {
	switch m {
	case InPerson:
		return "Presencial"
	case Online:
		return "Online"
	case Hybrid:
		return "Híbrida"
	default:
		return fmt.Sprintf("Modality(%d)", uint8(m))
	}
}

// ModalityOf 推断答辩形式：含换行（地点+链接）为混合，以 http 开头为线上，其余为线下。
func ModalityOf(local string) Modality {
	local = strings.TrimSpace(local)
	switch {
	case strings.Contains(local, "\n"):
		return Hybrid
	case strings.HasPrefix(local, "http"):
		return Online
	default:
		return InPerson
	}
}
