package services

import "github.com/aiwuxian/resonance-wiki/internal/models"

const (
	MaterialCharacterCore = "LF Whisperin Core"
	MaterialCredits       = "Shell Credits"
	MaterialWeaponRing    = "Crude Ring"
	MaterialSkillResidue  = "Waveworn Residue 210"

	ascensionThreshold = 20
	skillThreshold     = 4
)

// EstimateMaterials 按当前等级估算养成材料
func EstimateMaterials(characterLevel, weaponLevel int, skills models.SkillLevels) models.MaterialNeeds {
	needs := models.MaterialNeeds{
		CharacterMats: []models.MaterialRequirement{},
		WeaponMats:    []models.MaterialRequirement{},
		SkillMats:     []models.MaterialRequirement{},
	}

	if characterLevel > ascensionThreshold {
		needs.CharacterMats = append(needs.CharacterMats,
			models.MaterialRequirement{Name: MaterialCharacterCore, Amount: characterLevel / 20 * 5},
			models.MaterialRequirement{Name: MaterialCredits, Amount: characterLevel * 1000},
		)
	}

	if weaponLevel > ascensionThreshold {
		needs.WeaponMats = append(needs.WeaponMats,
			models.MaterialRequirement{Name: MaterialWeaponRing, Amount: weaponLevel / 20 * 3})
	}

	if total := skills.Total(); total > skillThreshold {
		needs.SkillMats = append(needs.SkillMats,
			models.MaterialRequirement{Name: MaterialSkillResidue, Amount: total * 2})
	}

	return needs
}
