package models

import "time"

// BaseStats 角色1级基础属性
// CritRate / CritDMG 为空时由聚合器填入默认值
type BaseStats struct {
	HP       float64  `json:"hp" yaml:"hp"`
	Attack   float64  `json:"attack" yaml:"attack"`
	Defense  float64  `json:"defense" yaml:"defense"`
	CritRate *float64 `json:"critRate,omitempty" yaml:"crit_rate"`
	CritDMG  *float64 `json:"critDMG,omitempty" yaml:"crit_dmg"`
}

// Skill 技能说明（仅用于图鉴展示）
type Skill struct {
	Name        string            `json:"name" yaml:"name"`
	Type        string            `json:"type,omitempty" yaml:"type"`
	Description string            `json:"description" yaml:"description"`
	Multipliers []SkillMultiplier `json:"multipliers,omitempty" yaml:"multipliers"`
}

// SkillMultiplier 技能倍率表的一行
type SkillMultiplier struct {
	Name   string            `json:"name" yaml:"name"`
	Values map[string]string `json:"values" yaml:"values"` // 等级 -> 倍率文本
}

// SkillSet 共鸣者技能组
type SkillSet struct {
	Basic      Skill   `json:"basic" yaml:"basic"`
	Skill      Skill   `json:"skill" yaml:"skill"`
	Liberation Skill   `json:"liberation" yaml:"liberation"`
	Intro      Skill   `json:"intro" yaml:"intro"`
	Outro      Skill   `json:"outro" yaml:"outro"`
	Concerto   *Skill  `json:"concerto,omitempty" yaml:"concerto"`
	Passive    []Skill `json:"passive,omitempty" yaml:"passive"`
}

// ResonanceChain 共鸣链节点
type ResonanceChain struct {
	Node        int    `json:"node" yaml:"node"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Resonator 共鸣者（角色）图鉴条目
type Resonator struct {
	ID             string           `json:"id" yaml:"id"`
	Name           string           `json:"name" yaml:"name"`
	Element        string           `json:"element" yaml:"element"` // Spectro, Aero, Electro, Glacio, Fusion, Havoc
	Weapon         string           `json:"weapon" yaml:"weapon"`   // 武器类型
	Rarity         int              `json:"rarity" yaml:"rarity"`
	Description    string           `json:"description" yaml:"description"`
	BaseStats      BaseStats        `json:"baseStats" yaml:"base_stats"`
	Skills         SkillSet         `json:"skills" yaml:"skills"`
	ResonanceChain []ResonanceChain `json:"resonanceChain,omitempty" yaml:"resonance_chain"`
}

// Weapon 武器图鉴条目
type Weapon struct {
	ID           string             `json:"id" yaml:"id"`
	Name         string             `json:"name" yaml:"name"`
	Type         string             `json:"type" yaml:"type"` // 与 Resonator.Weapon 对应
	Rarity       int                `json:"rarity" yaml:"rarity"`
	BaseAttack   float64            `json:"baseAttack" yaml:"base_attack"`
	SubStat      string             `json:"subStat" yaml:"sub_stat"`
	SubStatValue float64            `json:"subStatValue" yaml:"sub_stat_value"`
	PassiveStats map[string]float64 `json:"passiveStats,omitempty" yaml:"passive_stats"`
	Passive      string             `json:"passive,omitempty" yaml:"passive"`
}

// Echo 声骸图鉴条目
type Echo struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Cost      int      `json:"cost" yaml:"cost"`
	Element   string   `json:"element" yaml:"element"`
	SetID     string   `json:"setId,omitempty" yaml:"set_id"`
	MainStats []string `json:"mainStats" yaml:"main_stats"`
	SubStats  []string `json:"subStats" yaml:"sub_stats"`
	SetBonus  string   `json:"setBonus,omitempty" yaml:"set_bonus"`
}

// EchoSet 声骸套装
type EchoSet struct {
	ID        string           `json:"id" yaml:"id"`
	Name      string           `json:"name" yaml:"name"`
	MainStats map[int][]string `json:"mainStats" yaml:"main_stats"` // cost -> 可选主词条
	Bonuses   SetBonuses       `json:"bonuses" yaml:"bonuses"`
}

// SetBonuses 套装效果文本
type SetBonuses struct {
	TwoPiece  string `json:"2pc" yaml:"2pc"`
	FivePiece string `json:"5pc" yaml:"5pc"`
}

// StatRange 词条数值区间 [Min, Max)
type StatRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// CatalogData 静态图鉴数据全集
type CatalogData struct {
	Resonators     []Resonator                  `json:"resonators" yaml:"resonators"`
	Weapons        []Weapon                     `json:"weapons" yaml:"weapons"`
	Echoes         []Echo                       `json:"echoes" yaml:"echoes"`
	EchoSets       []EchoSet                    `json:"echoSets" yaml:"echo_sets"`
	MainStatRanges map[int]map[string]StatRange `json:"mainStatRanges" yaml:"main_stat_ranges"` // cost -> stat -> range
	SubStatRanges  map[string]StatRange         `json:"subStatRanges" yaml:"sub_stat_ranges"`
}

// SubStat 声骸副词条
type SubStat struct {
	Stat  string  `json:"stat"`
	Value float64 `json:"value"`
}

// EchoSlot 声骸槽位
// Cost 创建后不再变化
type EchoSlot struct {
	Cost          int       `json:"cost"`
	EchoID        string    `json:"echo,omitempty"`
	MainStat      string    `json:"mainStat,omitempty"`
	MainStatValue float64   `json:"mainStatValue"`
	SubStats      []SubStat `json:"subStats"`
}

// NewEchoSlot 创建空槽位
func NewEchoSlot(cost int) EchoSlot {
	return EchoSlot{Cost: cost, SubStats: []SubStat{}}
}

// SkillLevels 四个技能等级
type SkillLevels struct {
	Basic      int `json:"basic"`
	Skill      int `json:"skill"`
	Liberation int `json:"liberation"`
	Intro      int `json:"intro"`
}

// Total 技能等级总和
func (s SkillLevels) Total() int {
	return s.Basic + s.Skill + s.Liberation + s.Intro
}

// MaterialRequirement 材料需求
type MaterialRequirement struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"`
}

// MaterialNeeds 养成材料需求
type MaterialNeeds struct {
	CharacterMats []MaterialRequirement `json:"characterMats"`
	WeaponMats    []MaterialRequirement `json:"weaponMats"`
	SkillMats     []MaterialRequirement `json:"skillMats"`
}

// Empty 所有需求为空，表示当前等级下已养成完毕
func (m MaterialNeeds) Empty() bool {
	return len(m.CharacterMats) == 0 && len(m.WeaponMats) == 0 && len(m.SkillMats) == 0
}

// ActiveSet 已激活的套装效果
type ActiveSet struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Pieces    int    `json:"pieces"`
	TwoPiece  string `json:"2pc"`
	FivePiece string `json:"5pc,omitempty"`
}

// CritBreakdown 双暴评分的两部分
type CritBreakdown struct {
	CritRate float64 `json:"critRate"` // 暴击率 * 2
	CritDMG  float64 `json:"critDMG"`
	Total    float64 `json:"total"`
}

// Build 模拟器中的一套配装（仅存在于内存中）
type Build struct {
	ID             string      `json:"id"`
	ResonatorID    string      `json:"resonatorId"`
	CharacterLevel int         `json:"characterLevel"`
	WeaponID       string      `json:"weaponId,omitempty"`
	WeaponLevel    int         `json:"weaponLevel"`
	Skills         SkillLevels `json:"skills"`
	SetID          string      `json:"setId,omitempty"`
	Slots          []EchoSlot  `json:"slots"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Config 配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
	Mode string `yaml:"mode"` // gin 模式：debug, release, test
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	APIBase     string  `yaml:"api_base"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type SimulatorConfig struct {
	Seed        int64         `yaml:"seed"` // 0 表示使用当前时间
	StrictStats bool          `yaml:"strict_stats"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxSessions int           `yaml:"max_sessions"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}
