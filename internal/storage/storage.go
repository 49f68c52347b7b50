package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/aiwuxian/resonance-wiki/internal/models"
)

// Storage 图鉴数据库，启动时写入一次，之后只读
type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	s := &Storage{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库结构失败: %w", err)
	}

	return s, nil
}

func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resonators (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		element TEXT,
		weapon TEXT,
		rarity INTEGER DEFAULT 4,
		description TEXT,
		base_stats TEXT, -- JSON object
		skills TEXT, -- JSON object
		resonance_chain TEXT -- JSON array
	);

	CREATE TABLE IF NOT EXISTS weapons (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		rarity INTEGER DEFAULT 4,
		base_attack REAL DEFAULT 0,
		sub_stat TEXT,
		sub_stat_value REAL DEFAULT 0,
		passive_stats TEXT, -- JSON object
		passive TEXT
	);

	CREATE TABLE IF NOT EXISTS echo_sets (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		main_stats TEXT, -- JSON object, cost -> names
		two_piece TEXT,
		five_piece TEXT
	);

	CREATE TABLE IF NOT EXISTS echoes (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		cost INTEGER NOT NULL,
		element TEXT,
		set_id TEXT,
		main_stats TEXT, -- JSON array
		sub_stats TEXT, -- JSON array
		set_bonus TEXT
	);

	CREATE TABLE IF NOT EXISTS main_stat_ranges (
		cost INTEGER NOT NULL,
		stat TEXT NOT NULL,
		min REAL NOT NULL,
		max REAL NOT NULL,
		PRIMARY KEY (cost, stat)
	);

	CREATE TABLE IF NOT EXISTS sub_stat_ranges (
		stat TEXT PRIMARY KEY,
		min REAL NOT NULL,
		max REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_weapons_type ON weapons(type);
	CREATE INDEX IF NOT EXISTS idx_echoes_cost ON echoes(cost);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// IsEmpty 是否还没有写入过图鉴
func (s *Storage) IsEmpty() (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM resonators`).Scan(&n); err != nil {
		return false, fmt.Errorf("查询共鸣者数量失败: %w", err)
	}
	return n == 0, nil
}

// Seed 在一个事务内写入完整图鉴，已存在的条目会被覆盖
func (s *Storage) Seed(data *models.CatalogData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}
	defer tx.Rollback()

	for i, r := range data.Resonators {
		baseStatsJSON, err := sonic.Marshal(r.BaseStats)
		if err != nil {
			return fmt.Errorf("序列化共鸣者 %s 失败: %w", r.ID, err)
		}
		skillsJSON, err := sonic.Marshal(r.Skills)
		if err != nil {
			return fmt.Errorf("序列化共鸣者 %s 失败: %w", r.ID, err)
		}
		chainJSON, err := sonic.Marshal(r.ResonanceChain)
		if err != nil {
			return fmt.Errorf("序列化共鸣者 %s 失败: %w", r.ID, err)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO resonators (id, position, name, element, weapon, rarity, description, base_stats, skills, resonance_chain)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, i, r.Name, r.Element, r.Weapon, r.Rarity, r.Description,
			string(baseStatsJSON), string(skillsJSON), string(chainJSON))
		if err != nil {
			return fmt.Errorf("写入共鸣者 %s 失败: %w", r.ID, err)
		}
	}

	for i, w := range data.Weapons {
		passiveJSON, err := sonic.Marshal(w.PassiveStats)
		if err != nil {
			return fmt.Errorf("序列化武器 %s 失败: %w", w.ID, err)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO weapons (id, position, name, type, rarity, base_attack, sub_stat, sub_stat_value, passive_stats, passive)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, w.ID, i, w.Name, w.Type, w.Rarity, w.BaseAttack, w.SubStat, w.SubStatValue, string(passiveJSON), w.Passive)
		if err != nil {
			return fmt.Errorf("写入武器 %s 失败: %w", w.ID, err)
		}
	}

	for i, set := range data.EchoSets {
		mainStatsJSON, err := sonic.Marshal(set.MainStats)
		if err != nil {
			return fmt.Errorf("序列化套装 %s 失败: %w", set.ID, err)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO echo_sets (id, position, name, main_stats, two_piece, five_piece)
			VALUES (?, ?, ?, ?, ?, ?)
		`, set.ID, i, set.Name, string(mainStatsJSON), set.Bonuses.TwoPiece, set.Bonuses.FivePiece)
		if err != nil {
			return fmt.Errorf("写入套装 %s 失败: %w", set.ID, err)
		}
	}

	for i, e := range data.Echoes {
		mainStatsJSON, err := sonic.Marshal(e.MainStats)
		if err != nil {
			return fmt.Errorf("序列化声骸 %s 失败: %w", e.ID, err)
		}
		subStatsJSON, err := sonic.Marshal(e.SubStats)
		if err != nil {
			return fmt.Errorf("序列化声骸 %s 失败: %w", e.ID, err)
		}

		_, err = tx.Exec(`
			INSERT OR REPLACE INTO echoes (id, position, name, cost, element, set_id, main_stats, sub_stats, set_bonus)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, i, e.Name, e.Cost, e.Element, e.SetID, string(mainStatsJSON), string(subStatsJSON), e.SetBonus)
		if err != nil {
			return fmt.Errorf("写入声骸 %s 失败: %w", e.ID, err)
		}
	}

	for cost, ranges := range data.MainStatRanges {
		for stat, r := range ranges {
			_, err := tx.Exec(`
				INSERT OR REPLACE INTO main_stat_ranges (cost, stat, min, max) VALUES (?, ?, ?, ?)
			`, cost, stat, r.Min, r.Max)
			if err != nil {
				return fmt.Errorf("写入主词条区间失败: %w", err)
			}
		}
	}

	for stat, r := range data.SubStatRanges {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO sub_stat_ranges (stat, min, max) VALUES (?, ?, ?)
		`, stat, r.Min, r.Max)
		if err != nil {
			return fmt.Errorf("写入副词条区间失败: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}

// LoadCatalog 读取全部图鉴数据
func (s *Storage) LoadCatalog() (*models.CatalogData, error) {
	data := &models.CatalogData{}
	var err error

	if data.Resonators, err = s.GetResonators(); err != nil {
		return nil, err
	}
	if data.Weapons, err = s.GetWeapons(); err != nil {
		return nil, err
	}
	if data.EchoSets, err = s.GetEchoSets(); err != nil {
		return nil, err
	}
	if data.Echoes, err = s.GetEchoes(); err != nil {
		return nil, err
	}
	if data.MainStatRanges, err = s.GetMainStatRanges(); err != nil {
		return nil, err
	}
	if data.SubStatRanges, err = s.GetSubStatRanges(); err != nil {
		return nil, err
	}

	return data, nil
}

// GetResonators 获取所有共鸣者
func (s *Storage) GetResonators() ([]models.Resonator, error) {
	rows, err := s.db.Query(`
		SELECT id, name, element, weapon, rarity, description, base_stats, skills, resonance_chain
		FROM resonators
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("查询共鸣者失败: %w", err)
	}
	defer rows.Close()

	resonators := []models.Resonator{}
	for rows.Next() {
		var r models.Resonator
		var baseStatsJSON, skillsJSON, chainJSON string

		if err := rows.Scan(&r.ID, &r.Name, &r.Element, &r.Weapon, &r.Rarity, &r.Description,
			&baseStatsJSON, &skillsJSON, &chainJSON); err != nil {
			return nil, fmt.Errorf("读取共鸣者失败: %w", err)
		}

		if err := sonic.UnmarshalString(baseStatsJSON, &r.BaseStats); err != nil {
			return nil, fmt.Errorf("解析共鸣者 %s 基础属性失败: %w", r.ID, err)
		}
		if err := sonic.UnmarshalString(skillsJSON, &r.Skills); err != nil {
			return nil, fmt.Errorf("解析共鸣者 %s 技能失败: %w", r.ID, err)
		}
		if err := sonic.UnmarshalString(chainJSON, &r.ResonanceChain); err != nil {
			return nil, fmt.Errorf("解析共鸣者 %s 共鸣链失败: %w", r.ID, err)
		}

		resonators = append(resonators, r)
	}

	return resonators, rows.Err()
}

// GetWeapons 获取所有武器
func (s *Storage) GetWeapons() ([]models.Weapon, error) {
	rows, err := s.db.Query(`
		SELECT id, name, type, rarity, base_attack, sub_stat, sub_stat_value, passive_stats, passive
		FROM weapons
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("查询武器失败: %w", err)
	}
	defer rows.Close()

	weapons := []models.Weapon{}
	for rows.Next() {
		var w models.Weapon
		var passiveJSON string

		if err := rows.Scan(&w.ID, &w.Name, &w.Type, &w.Rarity, &w.BaseAttack, &w.SubStat,
			&w.SubStatValue, &passiveJSON, &w.Passive); err != nil {
			return nil, fmt.Errorf("读取武器失败: %w", err)
		}

		if err := sonic.UnmarshalString(passiveJSON, &w.PassiveStats); err != nil {
			return nil, fmt.Errorf("解析武器 %s 被动属性失败: %w", w.ID, err)
		}

		weapons = append(weapons, w)
	}

	return weapons, rows.Err()
}

// GetEchoSets 获取所有声骸套装
func (s *Storage) GetEchoSets() ([]models.EchoSet, error) {
	rows, err := s.db.Query(`
		SELECT id, name, main_stats, two_piece, five_piece
		FROM echo_sets
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("查询套装失败: %w", err)
	}
	defer rows.Close()

	sets := []models.EchoSet{}
	for rows.Next() {
		var set models.EchoSet
		var mainStatsJSON string

		if err := rows.Scan(&set.ID, &set.Name, &mainStatsJSON, &set.Bonuses.TwoPiece, &set.Bonuses.FivePiece); err != nil {
			return nil, fmt.Errorf("读取套装失败: %w", err)
		}

		if err := sonic.UnmarshalString(mainStatsJSON, &set.MainStats); err != nil {
			return nil, fmt.Errorf("解析套装 %s 主词条失败: %w", set.ID, err)
		}

		sets = append(sets, set)
	}

	return sets, rows.Err()
}

// GetEchoes 获取所有声骸
func (s *Storage) GetEchoes() ([]models.Echo, error) {
	rows, err := s.db.Query(`
		SELECT id, name, cost, element, set_id, main_stats, sub_stats, set_bonus
		FROM echoes
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("查询声骸失败: %w", err)
	}
	defer rows.Close()

	echoes := []models.Echo{}
	for rows.Next() {
		var e models.Echo
		var mainStatsJSON, subStatsJSON string

		if err := rows.Scan(&e.ID, &e.Name, &e.Cost, &e.Element, &e.SetID,
			&mainStatsJSON, &subStatsJSON, &e.SetBonus); err != nil {
			return nil, fmt.Errorf("读取声骸失败: %w", err)
		}

		if err := sonic.UnmarshalString(mainStatsJSON, &e.MainStats); err != nil {
			return nil, fmt.Errorf("解析声骸 %s 主词条失败: %w", e.ID, err)
		}
		if err := sonic.UnmarshalString(subStatsJSON, &e.SubStats); err != nil {
			return nil, fmt.Errorf("解析声骸 %s 副词条失败: %w", e.ID, err)
		}

		echoes = append(echoes, e)
	}

	return echoes, rows.Err()
}

// GetMainStatRanges 获取主词条数值区间
func (s *Storage) GetMainStatRanges() (map[int]map[string]models.StatRange, error) {
	rows, err := s.db.Query(`SELECT cost, stat, min, max FROM main_stat_ranges`)
	if err != nil {
		return nil, fmt.Errorf("查询主词条区间失败: %w", err)
	}
	defer rows.Close()

	ranges := make(map[int]map[string]models.StatRange)
	for rows.Next() {
		var cost int
		var stat string
		var r models.StatRange
		if err := rows.Scan(&cost, &stat, &r.Min, &r.Max); err != nil {
			return nil, fmt.Errorf("读取主词条区间失败: %w", err)
		}
		if ranges[cost] == nil {
			ranges[cost] = make(map[string]models.StatRange)
		}
		ranges[cost][stat] = r
	}

	return ranges, rows.Err()
}

// GetSubStatRanges 获取副词条数值区间
func (s *Storage) GetSubStatRanges() (map[string]models.StatRange, error) {
	rows, err := s.db.Query(`SELECT stat, min, max FROM sub_stat_ranges`)
	if err != nil {
		return nil, fmt.Errorf("查询副词条区间失败: %w", err)
	}
	defer rows.Close()

	ranges := make(map[string]models.StatRange)
	for rows.Next() {
		var stat string
		var r models.StatRange
		if err := rows.Scan(&stat, &r.Min, &r.Max); err != nil {
			return nil, fmt.Errorf("读取副词条区间失败: %w", err)
		}
		ranges[stat] = r
	}

	return ranges, rows.Err()
}
