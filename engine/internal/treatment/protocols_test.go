package treatment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchelonForFacility(t *testing.T) {
	assert.Equal(t, EchelonPOI, EchelonForFacility("POI"))
	assert.Equal(t, EchelonRole2, EchelonForFacility("role2"))
	assert.Equal(t, EchelonCSU, EchelonForFacility("CSU"))
	assert.Equal(t, EchelonRole1, EchelonForFacility("somewhere"))
}

func TestAppropriateTreatments(t *testing.T) {
	m := NewProtocolManager()

	t.Run("gunshot at POI leads with life savers", func(t *testing.T) {
		treatments := m.Appropriate("262574004", "POI", false, 0, "")
		require.NotEmpty(t, treatments)
		assert.Equal(t, "tourniquet", treatments[0])
		assert.Contains(t, treatments, "pressure_bandage")
		assert.Contains(t, treatments, "hemostatic_gauze")
	})

	t.Run("severe cases pick up secondary treatments", func(t *testing.T) {
		routine := m.Appropriate("262574004", "Role1", false, 0, "")
		severe := m.Appropriate("262574004", "Role1", true, 0, "")
		assert.Greater(t, len(severe), len(routine))
		assert.Contains(t, severe, "antibiotics")
	})

	t.Run("contraindications are removed", func(t *testing.T) {
		treatments := m.Appropriate("19130008", "POI", true, 0, "")
		assert.NotContains(t, treatments, "tourniquet")
		assert.NotContains(t, treatments, "morphine")
	})

	t.Run("body part constraints filter anatomically wrong picks", func(t *testing.T) {
		torso := m.Appropriate("262574004", "POI", false, 0, "torso")
		assert.NotContains(t, torso, "tourniquet")

		leg := m.Appropriate("262574004", "POI", false, 0, "leg")
		assert.Contains(t, leg, "tourniquet")
	})

	t.Run("outside the critical window ordering is protocol order", func(t *testing.T) {
		treatments := m.Appropriate("262574004", "Role1", false, 600, "")
		assert.Equal(t, []string{"iv_access", "iv_fluids", "pain_management"}, treatments)
	})

	t.Run("unknown code falls back to generic protocol", func(t *testing.T) {
		treatments := m.Appropriate("99999999", "Role1", false, 0, "")
		assert.NotEmpty(t, treatments)
		severe := m.Appropriate("99999999", "POI", true, 0, "leg")
		assert.Contains(t, severe, "tourniquet")
	})
}

func TestAllowedForBodyPart(t *testing.T) {
	assert.True(t, AllowedForBodyPart("tourniquet", "left leg"))
	assert.False(t, AllowedForBodyPart("tourniquet", "torso"))
	assert.True(t, AllowedForBodyPart("chest_seal", "torso"))
	assert.False(t, AllowedForBodyPart("chest_seal", "leg"))
	assert.True(t, AllowedForBodyPart("craniotomy", "head"))
	assert.False(t, AllowedForBodyPart("craniotomy", "abdomen"))
	assert.True(t, AllowedForBodyPart("iv_fluids", "anywhere"))
	assert.True(t, AllowedForBodyPart("tourniquet", ""))
}

func TestEffects(t *testing.T) {
	eff, ok := EffectFor("tourniquet")
	require.True(t, ok)
	assert.Equal(t, 15.0, eff.HealthBoost)
	assert.Equal(t, 0.3, eff.DeteriorationModifier)

	_, ok = EffectFor("time_travel")
	assert.False(t, ok)
}

func TestBestDeteriorationModifier(t *testing.T) {
	assert.Equal(t, 1.0, BestDeteriorationModifier(nil))
	assert.Equal(t, 0.3, BestDeteriorationModifier([]string{"morphine", "tourniquet"}))
	assert.Equal(t, 1.0, BestDeteriorationModifier([]string{"unknown"}))
}

func TestStackedEffects(t *testing.T) {
	assert.Equal(t, 1.0, StackedEffects(nil))
	assert.InDelta(t, 0.3, StackedEffects([]string{"tourniquet"}), 0.001)

	// Second treatment contributes at 80% effectiveness.
	combined := StackedEffects([]string{"tourniquet", "iv_fluids"})
	assert.InDelta(t, 0.3*(1-(1-0.6)*0.8), combined, 0.001)

	// Floor at 0.1 regardless of stack depth.
	many := StackedEffects([]string{"tourniquet", "damage_control_surgery", "definitive_surgery", "chest_tube", "blood_transfusion"})
	assert.GreaterOrEqual(t, many, 0.1)
}

func TestAvailableAt(t *testing.T) {
	t.Run("echelon gates advanced care", func(t *testing.T) {
		poi := AvailableAt("POI", "")
		assert.Contains(t, poi, "tourniquet")
		assert.NotContains(t, poi, "blood_transfusion")

		role2 := AvailableAt("Role2", "")
		assert.Contains(t, role2, "blood_transfusion")
		assert.NotContains(t, role2, "definitive_surgery")
	})

	t.Run("torso injuries never get tourniquets", func(t *testing.T) {
		treatments := AvailableAt("Role2", "penetrating chest wound")
		assert.NotContains(t, treatments, "tourniquet")
		assert.Contains(t, treatments, "chest_tube")
	})

	t.Run("extremity bleeds do", func(t *testing.T) {
		treatments := AvailableAt("Role2", "femoral artery laceration of leg")
		assert.Contains(t, treatments, "tourniquet")
	})

	t.Run("unlocated hemorrhage is conservative", func(t *testing.T) {
		treatments := AvailableAt("Role2", "uncontrolled hemorrhage")
		assert.NotContains(t, treatments, "tourniquet")
		assert.Contains(t, treatments, "pressure_bandage")
	})
}
