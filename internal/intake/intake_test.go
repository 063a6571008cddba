package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Result
	}{
		{
			name: "labelled parties",
			text: "KOMISI INFORMASI PROVINSI\nPUTUSAN\nNomor : 012/V/KIP-PS-A/2023\n\nNama Pemohon : Budi Santoso\nNama Termohon: Dinas Kesehatan Kota Bandung\n",
			want: Result{Number: "012/V/KIP-PS-A/2023", Petitioner: "Budi Santoso", Respondent: "Dinas Kesehatan Kota Bandung"},
		},
		{
			name: "party blocks without labels",
			text: "Nomor Registrasi 045/X/KI/2022\nPEMOHON\nSiti Aminah\nAlamat: Jl. Merdeka 1\nTERHADAP\nTERMOHON\nBapak Kepala\nPemerintah Kabupaten Sleman",
			want: Result{Number: "045/X/KI/2022", Petitioner: "Siti Aminah", Respondent: "Pemerintah Kabupaten Sleman"},
		},
		{
			name: "generic names inside blocks",
			text: "PEMOHON\nNama: Rina Marlina\nAlamat: Bandung\nTERMOHON\nNama: Kepala Dinas Perhubungan Kota Bandung",
			want: Result{Petitioner: "Rina Marlina", Respondent: "Kepala Dinas Perhubungan Kota Bandung"},
		},
		{
			name: "narrative filing",
			text: "Permohonan penyelesaian sengketa informasi yang diajukan oleh: Andi Wijaya\nSelanjutnya disebut sebagai Pemohon\n\nTerhadap: Sekretariat Daerah Kota Malang\nSelanjutnya disebut sebagai Termohon",
			want: Result{Petitioner: "Andi Wijaya", Respondent: "Sekretariat Daerah Kota Malang"},
		},
		{
			name: "person is not a respondent",
			text: "Nama Pemohon: Budi Santoso\nNama Termohon: Dr. Rahmat",
			want: Result{Petitioner: "Budi Santoso"},
		},
		{
			name: "respondent equal to petitioner dropped",
			text: "Nama Pemohon: Dinas Pendidikan\nNama Termohon: dinas pendidikan",
			want: Result{Petitioner: "Dinas Pendidikan"},
		},
		{
			name: "nothing found",
			text: "lorem ipsum",
			want: Result{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Extract(tc.text))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "Dinas Kesehatan", Normalize("Dinas Kese-\nhatan"))
	assert.Equal(t, "Nomor: 1", Normalize("Nomor \t :  1"))
	assert.Equal(t, "a\n\nb", Normalize("a\n\n\n\nb\r"))
	assert.Equal(t, "", Normalize(""))
}

func TestComplete(t *testing.T) {
	assert.True(t, Result{Petitioner: "A", Respondent: "Dinas B"}.Complete())
	assert.False(t, Result{Petitioner: "A"}.Complete())
}
