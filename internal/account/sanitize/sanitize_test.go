package sanitize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"

	"topup/internal/account/models"
)

type SanitizerSuite struct {
	suite.Suite
	s *Sanitizer
}

func TestSanitizerSuite(t *testing.T) {
	suite.Run(t, new(SanitizerSuite))
}

func (s *SanitizerSuite) SetupTest() {
	s.s = New()
}

func (s *SanitizerSuite) TestKey() {
	s.Equal("mobile-legends_2", s.s.Key("mobile-legends_2"))
	s.Equal("genshinimpact", s.s.Key("genshin impact!"))
	s.Equal("etcpasswd", s.s.Key("../etc/passwd"))
	s.Equal("", s.s.Key("<>;\"'"))
}

func (s *SanitizerSuite) TestValue() {
	s.Run("script element is removed", func() {
		got := s.s.Value("<script>alert(1)</script>12345")
		s.NotContains(got, "<")
		s.NotContains(got, ">")
		s.NotContains(got, "script")
		s.Contains(got, "12345")
	})

	s.Run("stray brackets are removed", func() {
		got := s.s.Value("12<3>4")
		s.NotContains(got, "<")
		s.NotContains(got, ">")
	})

	s.Run("entities are not double encoded", func() {
		s.Equal("Tom & Jerry", s.s.Value("Tom & Jerry"))
	})

	s.Run("encoded markup does not come back as brackets", func() {
		got := s.s.Value("&lt;img src=x&gt;")
		s.NotContains(got, "<")
		s.NotContains(got, ">")
	})

	s.Run("whitespace is trimmed", func() {
		s.Equal("2001", s.s.Value("  2001 \n"))
	})

	s.Run("long values are cut on a rune boundary", func() {
		got := s.s.Value(strings.Repeat("é", maxValueLen))
		s.LessOrEqual(len(got), maxValueLen)
		s.True(utf8.ValidString(got))
	})
}

func (s *SanitizerSuite) TestFields() {
	input := map[string]string{
		"user_id":  " 12345 ",
		"zone_id":  "<b>2001</b>",
		"password": "hunter2",
	}

	got := s.s.Fields(input, []string{"user_id", "zone_id", "server"})

	s.Equal(map[string]string{"user_id": "12345", "zone_id": "2001"}, got)
	s.NotContains(got, "password")
	s.NotContains(got, "server")
}

func (s *SanitizerSuite) TestContact() {
	got := s.s.Contact(models.Contact{Email: " buyer@example.com ", Phone: "<i>0812</i>"})
	s.Equal("buyer@example.com", got.Email)
	s.Equal("0812", got.Phone)
}
