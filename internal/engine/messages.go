package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sentinel/internal/models"
)

// Finnish watchdog messages, resolved purely from the alert mode and the
// triggered category set. User-facing copy only; error codes stay English.
var modeMessages = map[models.AlertMode]string{
	models.AlertModeNormal:    "Hyvää työtä! Kulutuksesi on tavoitetahdissa kohti 100 000 € säästöjä.",
	models.AlertModeCaution:   "Kulutus kiihtyy budjettiin nähden. Tarkista päivittäiset menosi.",
	models.AlertModeAlert:     "Budjetti ylittymässä: %s. Päivärajoja on kiristettävä.",
	models.AlertModeEmergency: "Hätätila! Kategoriat %s on lukittu ja lisätuloja tarvitaan heti.",
}

// MessageFor returns the localized watchdog summary for an alert state.
func MessageFor(state models.AlertState) string {
	return messageFor(state.Mode, state.TriggeredCategories)
}

func messageFor(mode models.AlertMode, triggered models.CategoryList) string {
	tmpl, ok := modeMessages[mode]
	if !ok {
		tmpl = modeMessages[models.AlertModeNormal]
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, strings.Join(triggered, ", "))
	}
	return tmpl
}

func categoryAdvisory(category string) string {
	return fmt.Sprintf("Kategorian %q kulutus on edellä aikataulua. Hidasta menoja loppukuuksi.", category)
}

func limitSuggestion(category string, newLimit decimal.Decimal) string {
	return fmt.Sprintf("Harkitse kategorian %q päivärajan laskemista tasolle %s €.", category, newLimit)
}

func limitOrder(category string, newLimit decimal.Decimal) string {
	return fmt.Sprintf("Kategorian %q päiväraja lasketaan tasolle %s € (−20 %%).", category, newLimit)
}

func lockdownNotice(category string) string {
	return fmt.Sprintf("Kategoria %q on lukittu: uudet ostokset estetään kauden loppuun asti.", category)
}

func incomeRequest() string {
	return "Harkitse lisätulojen hankkimista, jotta säästötavoite pysyy saavutettavissa."
}

func urgentIncomeRequest(deadline time.Time) string {
	return fmt.Sprintf("Hanki lisätuloja tai tee budjettikorjaus %s mennessä.", deadline.Format("2.1.2006"))
}
