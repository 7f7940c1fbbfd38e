package config

import "testing"

func TestLoadProfilesMissingFileIsEmpty(t *testing.T) {
	pf, err := LoadProfiles(t.TempDir())
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	if len(pf.Profiles) != 0 {
		t.Fatalf("want empty profiles, got %v", pf.Profiles)
	}
}

func TestProfilesSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	pf, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	pf.Set("aardwolf", Profile{Host: "aardmud.org", Port: 4000, Character: "Mip"})
	if err := pf.Save(dir); err != nil {
		t.Fatalf("save profiles: %v", err)
	}

	reloaded, err := LoadProfiles(dir)
	if err != nil {
		t.Fatalf("reload profiles: %v", err)
	}
	got, ok := reloaded.Profiles["aardwolf"]
	if !ok {
		t.Fatal("expected aardwolf profile to persist")
	}
	if got.Host != "aardmud.org" || got.Port != 4000 || got.Character != "Mip" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestProfilesSetOverwritesExisting(t *testing.T) {
	pf := &ProfilesFile{Profiles: map[string]Profile{
		"aardwolf": {Host: "aardmud.org", Port: 4000},
	}}
	pf.Set("aardwolf", Profile{Host: "aardmud.org", Port: 4001})
	if pf.Profiles["aardwolf"].Port != 4001 {
		t.Fatalf("want overwritten port 4001, got %d", pf.Profiles["aardwolf"].Port)
	}
}
